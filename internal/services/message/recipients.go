package message

import "sealkit/internal/domain"

// Recipients returns own followed by others, dropping keys whose canonical
// export was already seen.
func Recipients(p domain.CryptoProvider, own domain.PublicKey, others []domain.PublicKey) []domain.PublicKey {
	seen := make(map[string]struct{}, len(others)+1)
	out := make([]domain.PublicKey, 0, len(others)+1)
	for _, k := range append([]domain.PublicKey{own}, others...) {
		id := string(p.ExportPublicKey(k))
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, k)
	}
	return out
}
