package models

import "encoding/json"

// Order is a sales order pulled from the ERP. BlingID is the remote identity;
// Payload keeps the raw document for fields not extracted into columns.
type Order struct {
	ID          int64           `json:"-"`
	CompanyID   string          `json:"-"`
	BlingID     int64           `json:"id"`
	Number      int64           `json:"numero"`
	IssuedAt    string          `json:"data"`
	Total       float64         `json:"total"`
	ContactID   int64           `json:"contact_id"`
	ContactName string          `json:"contact_name"`
	StatusID    int             `json:"status_id"`
	Payload     json.RawMessage `json:"-"`
}

// Product is a catalog product pulled from the ERP.
type Product struct {
	ID        int64           `json:"-"`
	CompanyID string          `json:"-"`
	BlingID   int64           `json:"id"`
	Name      string          `json:"nome"`
	Code      string          `json:"codigo"`
	Price     float64         `json:"preco"`
	Situation string          `json:"situacao"`
	Payload   json.RawMessage `json:"-"`
}

// Customer is an ERP contact.
type Customer struct {
	ID        int64           `json:"-"`
	CompanyID string          `json:"-"`
	BlingID   int64           `json:"id"`
	Name      string          `json:"nome"`
	Document  string          `json:"numeroDocumento"`
	Email     string          `json:"email"`
	Phone     string          `json:"telefone"`
	Situation string          `json:"situacao"`
	Payload   json.RawMessage `json:"-"`
}
