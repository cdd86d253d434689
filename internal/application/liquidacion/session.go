package liquidacion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by a session that is not open
var ErrSessionClosed = errors.New("liquidacion session: not open")

// Snapshot is an immutable view of a session's state
type Snapshot struct {
	NumeroDTE                string
	Factura                  *liquidacion.Factura
	Vencimiento              *liquidacion.ValidacionVencimiento
	Detalles                 []liquidacion.Detalle
	Resumen                  liquidacion.Resumen
	CanLiquidate             bool
	NeedsAuthorizationAction bool
	Saving                   bool
	Mensaje                  string
}

// SessionConfig holds the collaborators of a Session
type SessionConfig struct {
	Facturas  FacturaGateway
	Detalles  DetalleGateway
	Tolerance decimal.Decimal
	Logger    *zap.Logger
}

// Session owns the reconciliation of one invoice at a time: search, the
// tardiness gate, the detail working copy and the liquidate action.
type Session struct {
	facturas  FacturaGateway
	detalles  DetalleGateway
	tolerance decimal.Decimal
	logger    *zap.Logger

	mu          sync.Mutex
	open        bool
	busy        bool
	lastDTE     string
	factura     *liquidacion.Factura
	vencimiento *liquidacion.ValidacionVencimiento
	store       *DetalleStore
	mensaje     string
	nextSubID   int
	subscribers map[int]func(Snapshot)
}

// NewSession creates a closed session
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tolerance := cfg.Tolerance
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = liquidacion.DefaultTolerance
	}
	return &Session{
		facturas:    cfg.Facturas,
		detalles:    cfg.Detalles,
		tolerance:   tolerance,
		logger:      logger,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Open starts the session with an empty state
func (s *Session) Open(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.resetLocked()
	return nil
}

// Close drops all state and subscribers
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.resetLocked()
	s.subscribers = make(map[int]func(Snapshot))
}

// Subscribe registers fn to receive a snapshot after every state change
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		NumeroDTE: s.lastDTE,
		Mensaje:   s.mensaje,
	}
	if s.factura != nil {
		f := *s.factura
		snap.Factura = &f
	}
	if s.vencimiento != nil {
		v := *s.vencimiento
		snap.Vencimiento = &v
	}
	if s.store != nil {
		snap.Detalles = s.store.Items()
		snap.Saving = s.store.Saving()
	}
	if s.factura != nil {
		snap.Resumen = liquidacion.Resumir(snap.Detalles, s.factura.MontoTotal, s.tolerance)
		v := liquidacion.ValidacionVencimiento{}
		if s.vencimiento != nil {
			v = *s.vencimiento
		}
		snap.CanLiquidate = liquidacion.CanLiquidate(s.factura, v)
		snap.NeedsAuthorizationAction = liquidacion.NeedsAuthorizationAction(s.factura, v)
	}
	snap.Saving = snap.Saving || s.busy
	return snap
}

func (s *Session) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) resetLocked() {
	s.lastDTE = ""
	s.factura = nil
	s.vencimiento = nil
	if s.store != nil {
		s.store.Clear()
	}
	s.store = nil
	s.mensaje = ""
	s.busy = false
}

// Limpiar clears the loaded invoice
func (s *Session) Limpiar() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.notify()
}

// Store returns the detail working copy of the loaded invoice, or nil
func (s *Session) Store() *DetalleStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Buscar loads an invoice by DTE. Repeating the last successful search is a
// no-op. Not found is reported in the snapshot message and clears the state.
func (s *Session) Buscar(ctx context.Context, numeroDTE string) (bool, error) {
	numeroDTE = strings.TrimSpace(numeroDTE)

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	if numeroDTE != "" && numeroDTE == s.lastDTE && s.factura != nil {
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	f, err := s.facturas.BuscarFactura(ctx, numeroDTE)
	if errors.Is(err, shared.ErrNotFound) {
		s.mu.Lock()
		s.resetLocked()
		s.mensaje = fmt.Sprintf("No se encontró la factura con DTE %s", numeroDTE)
		s.mu.Unlock()
		s.notify()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	store := NewDetalleStore(s.detalles, f.ID)
	store.Lock(f.IsLiquidada())
	loadErr := store.Load(ctx)
	v, evalErr := s.evaluar(ctx, f)

	s.mu.Lock()
	s.lastDTE = numeroDTE
	s.factura = f
	s.store = store
	s.vencimiento = v
	s.mensaje = ""
	if v.Degradado {
		s.mensaje = v.Mensaje
	}
	s.mu.Unlock()
	s.notify()

	var errs []error
	if loadErr != nil {
		errs = append(errs, fmt.Errorf("failed to load detalles: %w", loadErr))
	}
	if evalErr != nil {
		errs = append(errs, fmt.Errorf("failed to evaluate vencimiento: %w", evalErr))
	}
	return true, errors.Join(errs...)
}

// evaluar runs the tardiness gate remotely. When the call fails the result
// is the degraded validation, so the snapshot always carries a gate.
func (s *Session) evaluar(ctx context.Context, f *liquidacion.Factura) (*liquidacion.ValidacionVencimiento, error) {
	v, err := s.facturas.EvaluarVencimiento(ctx, f.ID)
	if err != nil {
		s.logger.Warn("Vencimiento evaluation failed",
			zap.String("numero_dte", f.NumeroDTE),
			zap.Error(err))
		return &liquidacion.ValidacionVencimiento{
			Mensaje:   liquidacion.MensajeCalendarioNoDisponible,
			Degradado: true,
		}, err
	}
	return &v, nil
}

func (s *Session) current() (*liquidacion.Factura, *DetalleStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, nil, ErrSessionClosed
	}
	if s.factura == nil || s.store == nil {
		return nil, nil, shared.NewDomainError("NO_INVOICE", "No hay una factura cargada")
	}
	return s.factura, s.store, nil
}

// AgregarDetalle appends an unsaved detail
func (s *Session) AgregarDetalle(base liquidacion.Detalle) (int, error) {
	_, store, err := s.current()
	if err != nil {
		return -1, err
	}
	i, err := store.Add(base)
	if err == nil {
		s.notify()
	}
	return i, err
}

// CopiarDetalle duplicates the detail at index
func (s *Session) CopiarDetalle(index int, opts CopyOptions) (int, error) {
	_, store, err := s.current()
	if err != nil {
		return -1, err
	}
	i, err := store.Copy(index, opts)
	if err == nil {
		s.notify()
	}
	return i, err
}

// ActualizarDetalle merges patch into the detail at index
func (s *Session) ActualizarDetalle(index int, patch liquidacion.DetallePatch) error {
	_, store, err := s.current()
	if err != nil {
		return err
	}
	if err := store.Update(index, patch); err != nil {
		return err
	}
	s.notify()
	return nil
}

// EliminarDetalle removes the detail at index
func (s *Session) EliminarDetalle(ctx context.Context, index int) error {
	_, store, err := s.current()
	if err != nil {
		return err
	}
	err = store.Remove(ctx, index)
	s.notify()
	return err
}

// GuardarDetalles saves every new or changed detail
func (s *Session) GuardarDetalles(ctx context.Context) error {
	_, store, err := s.current()
	if err != nil {
		return err
	}
	err = store.SaveAll(ctx)
	s.notify()
	return err
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return shared.ErrOperationInFlight
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// SolicitarAutorizacion files a tardiness authorization for the loaded invoice
func (s *Session) SolicitarAutorizacion(ctx context.Context, motivo string) error {
	f, _, err := s.current()
	if err != nil {
		return err
	}
	if err := liquidacion.ValidateMotivo(motivo); err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	updated, err := s.facturas.SolicitarAutorizacion(ctx, f.ID, motivo)
	s.end()
	if err != nil {
		s.notify()
		return err
	}
	v, _ := s.evaluar(ctx, updated)

	s.mu.Lock()
	s.factura = updated
	s.vencimiento = v
	s.mensaje = "Solicitud de autorización enviada"
	if v.Degradado {
		s.mensaje += ". " + v.Mensaje
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Liquidar liquidates the loaded invoice. The gate and the reconciliation
// are checked locally before the call.
func (s *Session) Liquidar(ctx context.Context) error {
	f, store, err := s.current()
	if err != nil {
		return err
	}
	snap := s.Snapshot()
	if !snap.CanLiquidate {
		return shared.NewDomainError("AUTHORIZATION_REQUIRED", "La factura no se puede liquidar en su estado actual")
	}
	if store.Dirty() {
		return shared.NewDomainError("UNSAVED_DETAILS", "Hay detalles sin guardar")
	}
	if snap.Resumen.Completitud != liquidacion.CompletitudCompleto {
		return shared.NewDomainError("NOT_RECONCILED", "El total de detalles no cuadra con la factura")
	}
	if err := s.begin(); err != nil {
		return err
	}
	updated, err := s.facturas.Liquidar(ctx, f.ID)
	s.end()
	if err != nil {
		s.notify()
		return err
	}
	store.Lock(updated.IsLiquidada())

	s.mu.Lock()
	s.factura = updated
	s.mensaje = "Factura liquidada"
	s.mu.Unlock()
	s.notify()
	return nil
}
