// Package moneymarket holds the message, response and query types shared by
// the money-market contracts, plus typed helpers for issuing cross-contract
// queries and messages. Every contract package depends on this package and
// never on another contract package directly.
package moneymarket
