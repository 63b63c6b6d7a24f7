package types

// Phase is the stage of a streaming pass.
type Phase int

const (
	PhaseSigning Phase = iota
	PhaseEncrypting
	PhaseDecrypting
	PhaseVerifying
)

func (p Phase) String() string {
	switch p {
	case PhaseSigning:
		return "signing"
	case PhaseEncrypting:
		return "encrypting"
	case PhaseDecrypting:
		return "decrypting"
	case PhaseVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// Progress is a snapshot of a streaming pass. It is purely observational.
type Progress struct {
	Phase          Phase
	BytesProcessed int64
	TotalSize      int64
}

// ProgressFunc receives progress snapshots after every chunk.
type ProgressFunc func(Progress)
