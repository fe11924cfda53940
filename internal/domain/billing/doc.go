// Package billing provides the domain model of the club billing ledger.
//
// This package implements the ledger bounded context, which is responsible for:
//   - Allocating member and city-ledger payments to outstanding invoices (FIFO)
//   - Computing billing periods under CALENDAR and ANNIVERSARY alignment
//   - Prorating partial-period charges and calculating late fees
//   - Tracking multi-installment payment arrangements
//
// Key Aggregates:
//   - Invoice: Balance-carrying charge against an account
//   - Payment: Immutable settlement with its PaymentAllocations
//   - PaymentArrangement: Installment plan replacing a lump-sum balance
//   - ClubBillingSettings / MemberBillingProfile: Tenant defaults and member overrides
//
// The calculators in this package (cycle, proration, late fee, FIFO planner) are
// pure functions of their inputs and are safe for concurrent use.
package billing
