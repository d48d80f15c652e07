package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentEdital    DocumentType = "edital"
	DocumentAnexo     DocumentType = "anexo"
	DocumentAta       DocumentType = "ata"
	DocumentResultado DocumentType = "resultado"
)

type ProcessingStatus string

const (
	ProcessingSuccess ProcessingStatus = "success"
	ProcessingPartial ProcessingStatus = "partial"
	ProcessingFailed  ProcessingStatus = "failed"
)

type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Context string     `json:"context"`
}

type Requirement struct {
	Category    string `json:"category"`
	Requirement string `json:"requirement"`
	Mandatory   bool   `json:"mandatory"`
	Details     string `json:"details"`
}

type DateInfo struct {
	Date    string `json:"date"` // DD/MM/YYYY as found in the document
	Context string `json:"context"`
}

type ValueInfo struct {
	Amount  float64 `json:"amount"`
	Raw     string  `json:"raw"`
	Context string  `json:"context"`
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type KeyInformation struct {
	Dates     []DateInfo  `json:"dates"`
	Values    []ValueInfo `json:"values"`
	Contacts  []Contact   `json:"contacts"`
	Addresses []string    `json:"addresses"`
}

// IsEmpty reports whether no key information was found at all.
func (k KeyInformation) IsEmpty() bool {
	return len(k.Dates) == 0 && len(k.Values) == 0 && len(k.Contacts) == 0 && len(k.Addresses) == 0
}

// DocumentProcessingResult is the output of the document extractor. A failed
// result has every structured field empty and at least one entry in Errors.
type DocumentProcessingResult struct {
	DocumentID            uuid.UUID        `json:"document_id"`
	NoticeID              *uuid.UUID       `json:"notice_id,omitempty"`
	DocumentURL           string           `json:"document_url,omitempty"`
	DocumentType          DocumentType     `json:"document_type"`
	ProcessingStatus      ProcessingStatus `json:"processing_status"`
	ExtractedText         string           `json:"extracted_text"`
	ExtractedTables       []Table          `json:"extracted_tables"`
	ExtractedRequirements []Requirement    `json:"extracted_requirements"`
	KeyInformation        KeyInformation   `json:"key_information"`
	ConfidenceScore       int              `json:"confidence_score"`
	Errors                []string         `json:"errors"`
	Source                ResultSource     `json:"source"`
	ProcessedAt           time.Time        `json:"processed_at"`
}
