package bling

import (
	"time"

	"github.com/erpsync/bling-sync/internal/models"
)

// listMeta carries pagination info from Bling list responses.
type listMeta struct {
	Pages int `json:"pages"`
}

// ListFilters are optional filters for paginated list calls. Zero values are
// omitted from the outgoing query, never serialized as empty strings.
type ListFilters struct {
	Page     int
	PageSize int
	Since    *time.Time
}

// OrderPage is one page of sales orders with the remaining page count.
type OrderPage struct {
	Orders []*models.Order
	Pages  int
}

// ProductPage is one page of products.
type ProductPage struct {
	Products []*models.Product
	Pages    int
}

// CustomerPage is one page of customers.
type CustomerPage struct {
	Customers []*models.Customer
	Pages     int
}

// orderPayload mirrors the Bling /pedidos/vendas wire format.
type orderPayload struct {
	ID       int64   `json:"id"`
	Numero   int64   `json:"numero"`
	Data     string  `json:"data"`
	Total    float64 `json:"total"`
	Contato  struct {
		ID   int64  `json:"id"`
		Nome string `json:"nome"`
	} `json:"contato"`
	Situacao struct {
		ID int `json:"id"`
	} `json:"situacao"`
}

func (p *orderPayload) toModel(raw []byte) *models.Order {
	return &models.Order{
		BlingID:     p.ID,
		Number:      p.Numero,
		IssuedAt:    p.Data,
		Total:       p.Total,
		ContactID:   p.Contato.ID,
		ContactName: p.Contato.Nome,
		StatusID:    p.Situacao.ID,
		Payload:     raw,
	}
}

// productPayload mirrors the Bling /produtos wire format.
type productPayload struct {
	ID       int64   `json:"id"`
	Nome     string  `json:"nome"`
	Codigo   string  `json:"codigo"`
	Preco    float64 `json:"preco"`
	Situacao string  `json:"situacao"`
}

func (p *productPayload) toModel(raw []byte) *models.Product {
	return &models.Product{
		BlingID:   p.ID,
		Name:      p.Nome,
		Code:      p.Codigo,
		Price:     p.Preco,
		Situation: p.Situacao,
		Payload:   raw,
	}
}

// customerPayload mirrors the Bling /contatos wire format.
type customerPayload struct {
	ID              int64  `json:"id"`
	Nome            string `json:"nome"`
	NumeroDocumento string `json:"numeroDocumento"`
	Email           string `json:"email"`
	Telefone        string `json:"telefone"`
	Situacao        string `json:"situacao"`
}

func (p *customerPayload) toModel(raw []byte) *models.Customer {
	return &models.Customer{
		BlingID:   p.ID,
		Name:      p.Nome,
		Document:  p.NumeroDocumento,
		Email:     p.Email,
		Phone:     p.Telefone,
		Situation: p.Situacao,
		Payload:   raw,
	}
}
