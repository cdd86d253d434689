// Package models contains the GORM persistence models of the liquidation and
// treasury tables. Domain types carry no ORM concerns; each model converts
// to and from its domain type with ToDomain and FromDomain.
//
//   - base.go: shared id, timestamp, version and creator columns
//   - liquidacion.go: facturas and detalles de liquidación
//   - anticipo.go: anticipos and their authorization follow-ups
//   - transferencia.go: solicitudes de transferencia and their detail pairs
//   - calendario.go: feriados
package models
