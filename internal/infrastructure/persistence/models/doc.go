// Package models holds the GORM models for the ledger tables and the
// mappers between them and the billing domain types. Domain types carry no
// ORM tags; every column mapping lives here.
package models
