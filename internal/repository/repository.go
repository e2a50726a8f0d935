// Package repository holds the SQL the API runs.
//
// Repositories never keep a connection around: each method borrows one from
// the connection factory, which provisions the database on first use.
package repository
