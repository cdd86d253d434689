package liquidacion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrIndexOutOfRange is returned when a store index does not exist
var ErrIndexOutOfRange = errors.New("detalle store: index out of range")

type storeEntry struct {
	detalle liquidacion.Detalle
	dirty   bool
}

// CopyOptions customizes DetalleStore.Copy
type CopyOptions struct {
	Marker      bool
	Monto       *decimal.Decimal
	Descripcion *string
}

// DetalleStore is the working copy of one invoice's detail list. Mutations
// are local until SaveAll; deleting a persisted detail goes to the gateway first.
type DetalleStore struct {
	mu        sync.Mutex
	gateway   DetalleGateway
	facturaID uuid.UUID
	entries   []storeEntry
	locked    bool
	saving    bool
}

// NewDetalleStore creates an empty store for an invoice
func NewDetalleStore(gateway DetalleGateway, facturaID uuid.UUID) *DetalleStore {
	return &DetalleStore{gateway: gateway, facturaID: facturaID}
}

// FacturaID returns the invoice the store belongs to
func (s *DetalleStore) FacturaID() uuid.UUID {
	return s.facturaID
}

// Lock freezes the list; used once the invoice is liquidated
func (s *DetalleStore) Lock(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = locked
}

// Saving reports whether a remote mutation is in flight
func (s *DetalleStore) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Items returns a copy of the current list
func (s *DetalleStore) Items() []liquidacion.Detalle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

func (s *DetalleStore) itemsLocked() []liquidacion.Detalle {
	items := make([]liquidacion.Detalle, len(s.entries))
	for i, e := range s.entries {
		items[i] = e.detalle
	}
	return items
}

// Dirty reports whether the store holds changes not yet saved
func (s *DetalleStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.dirty || !e.detalle.IsPersisted() {
			return true
		}
	}
	return false
}

// Load replaces the list with the gateway's copy
func (s *DetalleStore) Load(ctx context.Context) error {
	detalles, err := s.gateway.ListDetalles(ctx, s.facturaID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(detalles)
	return nil
}

// Clear empties the list without touching the gateway
func (s *DetalleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *DetalleStore) replaceLocked(detalles []liquidacion.Detalle) {
	s.entries = make([]storeEntry, len(detalles))
	for i, d := range detalles {
		s.entries[i] = storeEntry{detalle: d}
	}
}

func (s *DetalleStore) checkMutable() error {
	if s.saving {
		return shared.ErrOperationInFlight
	}
	if s.locked {
		return shared.NewDomainError("INVALID_STATE", "La factura ya fue liquidada, sus detalles no se pueden modificar")
	}
	return nil
}

// Add appends a new unsaved detail and returns its index.
// The payment method defaults to deposito.
func (s *DetalleStore) Add(base liquidacion.Detalle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return -1, err
	}
	d := base.Clone()
	d.FacturaID = s.facturaID
	if d.FormaPago == "" {
		d.FormaPago = liquidacion.FormaPagoDeposito
	}
	s.entries = append(s.entries, storeEntry{detalle: d, dirty: true})
	return len(s.entries) - 1, nil
}

// Copy duplicates the detail at index right after it, without id
func (s *DetalleStore) Copy(index int, opts CopyOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return -1, err
	}
	if index < 0 || index >= len(s.entries) {
		return -1, ErrIndexOutOfRange
	}
	d := s.entries[index].detalle.Clone()
	if opts.Monto != nil {
		d.Monto = *opts.Monto
	}
	if opts.Descripcion != nil {
		d.Descripcion = *opts.Descripcion
	}
	if opts.Marker {
		d.Descripcion = CopyMarker + d.Descripcion
	}

	at := index + 1
	s.entries = append(s.entries, storeEntry{})
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = storeEntry{detalle: d, dirty: true}
	return at, nil
}

// Update shallow-merges patch into the detail at index
func (s *DetalleStore) Update(index int, patch liquidacion.DetallePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.entries) {
		return ErrIndexOutOfRange
	}
	if patch.IsEmpty() {
		return nil
	}
	s.entries[index].detalle = patch.Apply(s.entries[index].detalle)
	s.entries[index].dirty = true
	return nil
}

// Remove drops the detail at index. A persisted detail is only removed
// locally after the gateway confirms the delete.
func (s *DetalleStore) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	if err := s.checkMutable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(s.entries) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	target := s.entries[index].detalle
	if !target.IsPersisted() {
		s.entries = append(s.entries[:index], s.entries[index+1:]...)
		s.mu.Unlock()
		return nil
	}
	s.saving = true
	s.mu.Unlock()

	err := s.gateway.DeleteDetalle(ctx, *target.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		return err
	}
	for i, e := range s.entries {
		if e.detalle.ID != nil && *e.detalle.ID == *target.ID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

// ValidateAmount checks a candidate amount for the detail at index, or for a
// new detail when index is negative.
func (s *DetalleStore) ValidateAmount(index int, monto, montoFactura decimal.Decimal) liquidacion.AmountValidation {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.itemsLocked()
	if index < 0 || index >= len(items) {
		return liquidacion.ValidateNewAmount(items, liquidacion.ExcludeUnsaved, monto, montoFactura)
	}
	rest := append(append([]liquidacion.Detalle{}, items[:index]...), items[index+1:]...)
	return liquidacion.ValidateNewAmount(rest, liquidacion.DetalleRef{}, monto, montoFactura)
}

// Resumen summarizes the current list against the invoice amount
func (s *DetalleStore) Resumen(montoFactura, tolerance decimal.Decimal) liquidacion.Resumen {
	return liquidacion.Resumir(s.Items(), montoFactura, tolerance)
}

// SaveAll creates new details and updates changed ones one after another,
// then reloads the list from the gateway. Entries that were saved keep their
// new ids even when a later one fails, so a retry does not duplicate them.
func (s *DetalleStore) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkMutable(); err != nil {
		s.mu.Unlock()
		return err
	}
	for i := range s.entries {
		if s.entries[i].detalle.Posicion != i {
			s.entries[i].detalle.Posicion = i
			s.entries[i].dirty = true
		}
	}
	type pending struct {
		index   int
		detalle liquidacion.Detalle
	}
	var work []pending
	for i, e := range s.entries {
		if !e.detalle.IsPersisted() || e.dirty {
			work = append(work, pending{index: i, detalle: e.detalle})
		}
	}
	s.saving = true
	s.mu.Unlock()

	var errs []error
	saved := make(map[int]liquidacion.Detalle, len(work))
	for _, w := range work {
		if verrs := w.detalle.Validate(); len(verrs) > 0 {
			errs = append(errs, fmt.Errorf("detalle %d: %w", w.index+1, verrs))
			continue
		}
		var (
			result liquidacion.Detalle
			err    error
		)
		if w.detalle.IsPersisted() {
			result, err = s.gateway.UpdateDetalle(ctx, w.detalle)
		} else {
			result, err = s.gateway.CreateDetalle(ctx, w.detalle)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("detalle %d: %w", w.index+1, err))
			continue
		}
		saved[w.index] = result
	}

	var reloaded []liquidacion.Detalle
	var reloadErr error
	if len(errs) == 0 {
		reloaded, reloadErr = s.gateway.ListDetalles(ctx, s.facturaID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if len(errs) > 0 {
		for i, d := range saved {
			s.entries[i] = storeEntry{detalle: d}
		}
		return errors.Join(errs...)
	}
	if reloadErr != nil {
		for i, d := range saved {
			s.entries[i] = storeEntry{detalle: d}
		}
		return fmt.Errorf("failed to reload detalles: %w", reloadErr)
	}
	s.replaceLocked(reloaded)
	return nil
}
