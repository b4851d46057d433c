package domain

// BikeStatus is the live status of a bike. Values are stored and returned verbatim.
type BikeStatus string

const (
	StatusActive      BikeStatus = "En Regla"
	StatusStolen      BikeStatus = "Robada"
	StatusTransferred BikeStatus = "Transferida"
)

// bikeTransitions lists every allowed status change.
// Transferida is only a history marker: the live status goes back to En Regla right after.
var bikeTransitions = map[BikeStatus][]BikeStatus{
	StatusActive:      {StatusStolen, StatusTransferred},
	StatusStolen:      {StatusActive, StatusTransferred},
	StatusTransferred: {StatusActive},
}

func (s BikeStatus) Valid() bool {
	_, ok := bikeTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to BikeStatus) bool {
	for _, next := range bikeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	NoteInitialRegistration = "Registro inicial"
	NoteReportedStolen      = "Reportada como robada por el propietario"
	NoteMarkedRecovered     = "Marcada como recuperada por el propietario"
	NoteStatusChanged       = "Cambio de estado"
	NoteTransferCompleted   = "Transferencia de propiedad completada"
)
