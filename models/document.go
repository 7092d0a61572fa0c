package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Document is an uploaded financial document. Upload, storage and OCR live in
// collaborating services; this core only reads the processing outcome.
type Document struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	AccountingSubjectId string    `gorm:"size:64;not null;index" json:"accounting_subject_id"`
	DocumentUrl         string    `json:"document_url"`
	IsProcessed         bool      `gorm:"default:false" json:"is_processed"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExtractedInvoice holds the structured fields extraction produced for a
// processed document. One row per document.
type ExtractedInvoice struct {
	ID             int              `gorm:"primary_key" json:"id"`
	DocumentId     int              `gorm:"not null;uniqueIndex" json:"document_id"`
	CreatedDate    string           `gorm:"size:32" json:"created_date"`
	DueDate        string           `gorm:"size:32" json:"due_date"`
	DocumentNumber string           `gorm:"size:64" json:"document_number"`
	BuyerEin       string           `gorm:"size:32;index" json:"buyer_ein"`
	SellerEin      string           `gorm:"size:32;index" json:"seller_ein"`
	LineItems      InvoiceLineItems `gorm:"type:json" json:"line_items"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// InvoiceLineItem matches the line-item shape the automation vendor expects;
// the field names are part of the wire contract.
type InvoiceLineItem struct {
	Type        string          `json:"type"`
	Management  string          `json:"management"`
	Quantity    decimal.Decimal `json:"quantity"`
	ArticleCode string          `json:"articleCode"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Name        string          `json:"name"`
	Tva         string          `json:"tva"`
	Um          string          `json:"um"`
}

// InvoiceLineItems is stored as a JSON column.
type InvoiceLineItems []InvoiceLineItem

func (l InvoiceLineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *InvoiceLineItems) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into InvoiceLineItems", value)
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// GetProcessedDocumentWithExtraction loads a document and its extracted
// fields. Missing document and missing extraction both surface as NotFound;
// an unprocessed document is its own error so the caller can report why the
// submission cannot proceed.
func GetProcessedDocumentWithExtraction(ctx context.Context, documentId int) (*Document, *ExtractedInvoice, error) {
	db := config.GetDB()

	var doc Document
	if err := db.WithContext(ctx).First(&doc, documentId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.ErrorRecordNotFound
		}
		return nil, nil, err
	}
	if !doc.IsProcessed {
		return nil, nil, utils.ErrorDocumentNotProcessed
	}

	var extracted ExtractedInvoice
	if err := db.WithContext(ctx).Where("document_id = ?", documentId).First(&extracted).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.ErrorRecordNotFound
		}
		return nil, nil, err
	}
	return &doc, &extracted, nil
}
