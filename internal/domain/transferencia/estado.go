package transferencia

// Estado represents the lifecycle state of a transfer request
type Estado string

const (
	EstadoPendienteAprobacion Estado = "pendiente_aprobacion"
	EstadoAprobada            Estado = "aprobada"
	EstadoRechazada           Estado = "rechazada"
	EstadoCompletada          Estado = "completada"
	EstadoCancelada           Estado = "cancelada"
)

// IsValid checks if the state is a valid Estado
func (e Estado) IsValid() bool {
	switch e {
	case EstadoPendienteAprobacion, EstadoAprobada, EstadoRechazada,
		EstadoCompletada, EstadoCancelada:
		return true
	}
	return false
}

// String returns the string representation of Estado
func (e Estado) String() string {
	return string(e)
}

// IsTerminal returns true if no further transition is possible
func (e Estado) IsTerminal() bool {
	return e == EstadoCompletada || e == EstadoCancelada
}

// CanApprove returns true if the request can be approved or rejected
func (e Estado) CanApprove() bool {
	return e == EstadoPendienteAprobacion
}

// CanEdit returns true if the request data can be corrected
func (e Estado) CanEdit() bool {
	return e == EstadoRechazada
}

// CanRegisterReceipt returns true if a receipt can be registered
func (e Estado) CanRegisterReceipt() bool {
	return e == EstadoAprobada
}

// CanCancel returns true if the request can be cancelled
func (e Estado) CanCancel() bool {
	return e == EstadoPendienteAprobacion || e == EstadoAprobada || e == EstadoRechazada
}
