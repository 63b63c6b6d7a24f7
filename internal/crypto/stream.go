package crypto

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"sealkit/internal/domain"
	"sealkit/internal/util/memzero"
)

const (
	// DefaultSegmentSize is the plaintext size of one sealed segment.
	DefaultSegmentSize = 64 * 1024

	streamMagic   = "SKS1"
	streamVersion = 1
	prefixSize    = 16
	maxHeaderSize = 1 << 20
	maxSegment    = 16 << 20
	// counter occupies nonce bytes [16:23]; byte 23 is the final flag.
	maxSegments = 1 << 56
)

var (
	ErrMalformed        = errors.New("malformed ciphertext")
	ErrNotRecipient     = errors.New("not a recipient of this ciphertext")
	ErrAuthentication   = errors.New("message authentication failed")
	ErrSignature        = errors.New("signature verification failed")
	ErrMissingSignature = errors.New("ciphertext carries no signature")
	ErrNoRecipients     = errors.New("no recipients")
	errStreamState      = errors.New("stream used out of order")
)

var (
	wrapInfo     = []byte("sealkit-wrap-v1")
	signatureAAD = []byte("sealkit-signature-v1")
)

// streamHeader precedes the segments. It is encoded as
// magic | uint32 length | JSON.
type streamHeader struct {
	Version     int              `json:"v"`
	Ephemeral   []byte           `json:"eph"`
	NoncePrefix []byte           `json:"np"`
	Segment     int              `json:"seg"`
	Recipients  []recipientEntry `json:"rcpt"`
	Signature   []byte           `json:"sig,omitempty"`
}

// recipientEntry carries the content key wrapped for one recipient.
type recipientEntry struct {
	KeyID   []byte `json:"kid"`
	Wrapped []byte `json:"key"`
}

// segmenter seals or opens fixed-size segments under the content key.
type segmenter struct {
	aead    cipher.AEAD
	prefix  [prefixSize]byte
	ad      []byte
	counter uint64
}

func (s *segmenter) nonce(final bool) ([]byte, error) {
	if s.counter >= maxSegments {
		return nil, errors.New("stream too long")
	}
	n := make([]byte, chacha20poly1305.NonceSizeX)
	copy(n, s.prefix[:])
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], s.counter)
	copy(n[prefixSize:prefixSize+7], ctr[1:])
	if final {
		n[len(n)-1] = 1
	}
	return n, nil
}

func (s *segmenter) seal(dst, plaintext []byte, final bool) ([]byte, error) {
	n, err := s.nonce(final)
	if err != nil {
		return nil, err
	}
	s.counter++
	return s.aead.Seal(dst, n, plaintext, s.ad), nil
}

func (s *segmenter) open(dst, ciphertext []byte, final bool) ([]byte, error) {
	n, err := s.nonce(final)
	if err != nil {
		return nil, err
	}
	out, err := s.aead.Open(dst, n, ciphertext, s.ad)
	if err != nil {
		return nil, ErrAuthentication
	}
	s.counter++
	return out, nil
}

// streamCipher implements domain.StreamCipher.
type streamCipher struct {
	cek     []byte
	header  []byte
	seg     segmenter
	segment int
	buf     []byte
	started bool
	done    bool
}

func newStreamCipher(recipients []domain.PublicKey, signature []byte, segment int) (*streamCipher, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	cek := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(cek); err != nil {
		return nil, err
	}
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(ephPriv[:])

	h := streamHeader{
		Version:   streamVersion,
		Ephemeral: ephPub.Slice(),
		Segment:   segment,
	}
	var prefix [prefixSize]byte
	if _, err := rand.Read(prefix[:]); err != nil {
		return nil, err
	}
	h.NoncePrefix = prefix[:]

	for _, r := range recipients {
		wrapped, err := wrapKey(cek, ephPriv, ephPub, r)
		if err != nil {
			return nil, err
		}
		kid := KeyIDOf(exportPublic(r))
		h.Recipients = append(h.Recipients, recipientEntry{KeyID: kid[:], Wrapped: wrapped})
	}

	aead, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return nil, err
	}
	if signature != nil {
		nonce := make([]byte, aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return nil, err
		}
		h.Signature = aead.Seal(nonce, nonce, signature, signatureAAD)
	}

	header, err := encodeHeader(h)
	if err != nil {
		return nil, err
	}
	ad := sha256.Sum256(header)
	return &streamCipher{
		cek:     cek,
		header:  header,
		seg:     segmenter{aead: aead, prefix: prefix, ad: ad[:]},
		segment: segment,
	}, nil
}

func (c *streamCipher) Start() ([]byte, error) {
	if c.started || c.cek == nil {
		return nil, errStreamState
	}
	c.started = true
	return append([]byte(nil), c.header...), nil
}

// Update buffers chunk and emits every complete segment except the last one,
// which is held back so Final can mark it.
func (c *streamCipher) Update(chunk []byte) ([]byte, error) {
	if !c.started || c.done {
		return nil, errStreamState
	}
	c.buf = append(c.buf, chunk...)
	var out []byte
	for len(c.buf) > c.segment {
		var err error
		out, err = c.seg.seal(out, c.buf[:c.segment], false)
		if err != nil {
			return nil, err
		}
		c.buf = append(c.buf[:0], c.buf[c.segment:]...)
	}
	return out, nil
}

func (c *streamCipher) Final() ([]byte, error) {
	if !c.started || c.done {
		return nil, errStreamState
	}
	c.done = true
	out, err := c.seg.seal(nil, c.buf, true)
	memzero.Zero(c.buf)
	c.buf = c.buf[:0]
	return out, err
}

func (c *streamCipher) Dispose() {
	memzero.ZeroAll(c.cek, c.buf)
	c.cek, c.buf = nil, nil
	c.done = true
}

// streamDecipher implements domain.StreamDecipher.
type streamDecipher struct {
	priv      domain.PrivateKey
	kid       domain.KeyID
	buf       []byte
	seg       segmenter
	segment   int
	parsed    bool
	done      bool
	complete  bool
	signature []byte
}

func newStreamDecipher(recipient domain.PrivateKey) *streamDecipher {
	pub := extractPublic(recipient)
	return &streamDecipher{priv: recipient, kid: KeyIDOf(exportPublic(pub))}
}

func (d *streamDecipher) Update(chunk []byte) ([]byte, error) {
	if d.done {
		return nil, errStreamState
	}
	d.buf = append(d.buf, chunk...)
	if !d.parsed {
		ok, err := d.parseHeader()
		if err != nil || !ok {
			return nil, err
		}
	}
	var out []byte
	sealed := d.segment + d.seg.aead.Overhead()
	for len(d.buf) > sealed {
		var err error
		out, err = d.seg.open(out, d.buf[:sealed], false)
		if err != nil {
			return nil, err
		}
		d.buf = append(d.buf[:0], d.buf[sealed:]...)
	}
	return out, nil
}

func (d *streamDecipher) Final() ([]byte, error) {
	if d.done {
		return nil, errStreamState
	}
	d.done = true
	if !d.parsed {
		return nil, fmt.Errorf("%w: truncated header", ErrMalformed)
	}
	overhead := d.seg.aead.Overhead()
	if len(d.buf) < overhead || len(d.buf) > d.segment+overhead {
		return nil, fmt.Errorf("%w: bad final segment length %d", ErrMalformed, len(d.buf))
	}
	out, err := d.seg.open(nil, d.buf, true)
	d.buf = d.buf[:0]
	if err != nil {
		return nil, err
	}
	d.complete = true
	return out, nil
}

func (d *streamDecipher) Signature() ([]byte, bool) {
	if !d.complete || d.signature == nil {
		return nil, false
	}
	return d.signature, true
}

func (d *streamDecipher) Dispose() {
	d.priv.Wipe()
	memzero.Zero(d.buf)
	d.buf = nil
	d.done = true
}

// parseHeader consumes the header once enough bytes are buffered.
func (d *streamDecipher) parseHeader() (bool, error) {
	fixed := len(streamMagic) + 4
	if len(d.buf) < fixed {
		return false, nil
	}
	if string(d.buf[:len(streamMagic)]) != streamMagic {
		return false, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	size := binary.BigEndian.Uint32(d.buf[len(streamMagic):fixed])
	if size > maxHeaderSize {
		return false, fmt.Errorf("%w: header too large", ErrMalformed)
	}
	total := fixed + int(size)
	if len(d.buf) < total {
		return false, nil
	}
	var h streamHeader
	if err := json.Unmarshal(d.buf[fixed:total], &h); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Version != streamVersion || len(h.Ephemeral) != 32 ||
		len(h.NoncePrefix) != prefixSize || h.Segment <= 0 || h.Segment > maxSegment {
		return false, fmt.Errorf("%w: bad header fields", ErrMalformed)
	}

	var entry *recipientEntry
	for i := range h.Recipients {
		if bytes.Equal(h.Recipients[i].KeyID, d.kid[:]) {
			entry = &h.Recipients[i]
			break
		}
	}
	if entry == nil {
		return false, ErrNotRecipient
	}
	var eph domain.X25519Public
	copy(eph[:], h.Ephemeral)
	cek, err := unwrapKey(entry.Wrapped, d.priv, eph)
	if err != nil {
		return false, err
	}
	defer memzero.Zero(cek)

	aead, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return false, err
	}
	if h.Signature != nil {
		if len(h.Signature) < aead.NonceSize()+aead.Overhead() {
			return false, fmt.Errorf("%w: short signature block", ErrMalformed)
		}
		nonce, ct := h.Signature[:aead.NonceSize()], h.Signature[aead.NonceSize():]
		sig, err := aead.Open(nil, nonce, ct, signatureAAD)
		if err != nil {
			return false, ErrAuthentication
		}
		d.signature = sig
	}

	ad := sha256.Sum256(d.buf[:total])
	d.seg = segmenter{aead: aead, ad: ad[:]}
	copy(d.seg.prefix[:], h.NoncePrefix)
	d.segment = h.Segment
	d.buf = append(d.buf[:0], d.buf[total:]...)
	d.parsed = true
	return true, nil
}

func encodeHeader(h streamHeader) ([]byte, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(streamMagic)+4+len(body))
	out = append(out, streamMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(body)))
	return append(out, body...), nil
}

// wrapKey seals cek for recipient with a key derived from the X25519 shared
// secret between the ephemeral key and the recipient's exchange key.
func wrapKey(cek []byte, ephPriv domain.X25519Private, ephPub domain.X25519Public, recipient domain.PublicKey) ([]byte, error) {
	kek, err := wrapKEK(ephPriv, recipient.Exchange, ephPub, recipient.Exchange)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kek)
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(cek)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, cek, recipient.Exchange.Slice()), nil
}

func unwrapKey(wrapped []byte, priv domain.PrivateKey, ephPub domain.X25519Public) ([]byte, error) {
	pub, err := x25519Public(priv.Exchange)
	if err != nil {
		return nil, err
	}
	kek, err := wrapKEK(priv.Exchange, ephPub, ephPub, pub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kek)
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: short wrapped key", ErrMalformed)
	}
	nonce, ct := wrapped[:aead.NonceSize()], wrapped[aead.NonceSize():]
	cek, err := aead.Open(nil, nonce, ct, pub.Slice())
	if err != nil {
		return nil, ErrAuthentication
	}
	return cek, nil
}

// wrapKEK derives the key-wrapping key from DH(priv, peer), salted with the
// ephemeral and recipient public keys.
func wrapKEK(priv domain.X25519Private, peer, ephPub, recipientPub domain.X25519Public) ([]byte, error) {
	shared, err := DH(priv, peer)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(shared[:])
	salt := make([]byte, 0, 64)
	salt = append(salt, ephPub[:]...)
	salt = append(salt, recipientPub[:]...)
	kek := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared[:], salt, wrapInfo), kek); err != nil {
		return nil, err
	}
	return kek, nil
}
