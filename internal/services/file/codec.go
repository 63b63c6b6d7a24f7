package file

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"sealkit/internal/blob"
	"sealkit/internal/domain"
	"sealkit/internal/observability"
	"sealkit/internal/services/message"
)

var (
	// ErrUnsigned means the decrypted stream carried no signature.
	ErrUnsigned = errors.New("encrypted file carries no signature")
	// ErrBadSignature means the plaintext does not match the embedded signature.
	ErrBadSignature = errors.New("file signature does not verify")
)

// Options tune a single EncryptFile or DecryptFile call.
type Options struct {
	// ChunkSize is the read size of every pass; zero means
	// blob.DefaultChunkSize.
	ChunkSize  int
	OnProgress domain.ProgressFunc
	// BufferDir, when set, spills the output to a temporary file in that
	// directory instead of memory.
	BufferDir string
}

// Codec is the streaming file codec.
type Codec struct {
	keys    domain.KeySource
	crypto  domain.CryptoProvider
	log     zerolog.Logger
	metrics *observability.Metrics
}

// New returns a file codec. logger and metrics may be nil.
func New(keys domain.KeySource, crypto domain.CryptoProvider, logger *zerolog.Logger, metrics *observability.Metrics) *Codec {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Codec{keys: keys, crypto: crypto, log: log, metrics: metrics}
}

// pass folds src in chunks, reporting progress for phase after each one.
func (c *Codec) pass(ctx context.Context, src blob.Source, phase domain.Phase, opts Options, fn func([]byte) error) error {
	total := src.Size()
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = blob.DefaultChunkSize
	}
	err := blob.Fold(ctx, src, chunk, func(b []byte, processed int64) error {
		if err := fn(b); err != nil {
			return err
		}
		c.metrics.AddStreamed(phase.String(), len(b))
		if opts.OnProgress != nil {
			opts.OnProgress(domain.Progress{Phase: phase, BytesProcessed: processed, TotalSize: total})
		}
		return nil
	})
	if err == nil && total == 0 && opts.OnProgress != nil {
		opts.OnProgress(domain.Progress{Phase: phase})
	}
	return err
}

// EncryptFile signs and encrypts in for recipients and the sender. The
// result keeps in's name and content type.
func (c *Codec) EncryptFile(
	ctx context.Context,
	in blob.Blob,
	recipients []domain.PublicKey,
	opts Options,
) (out blob.Blob, err error) {
	defer func() { c.metrics.ObserveCrypto("encrypt_file", err) }()

	priv, err := c.keys.PrivateKey()
	if err != nil {
		return blob.Blob{}, err
	}
	defer priv.Wipe()

	signer := c.crypto.NewSigner()
	err = c.pass(ctx, in.Source, domain.PhaseSigning, opts, func(b []byte) error {
		signer.Update(b)
		return nil
	})
	if err != nil {
		return blob.Blob{}, fmt.Errorf("sign file: %w", err)
	}
	signature, err := signer.Sign(priv)
	if err != nil {
		return blob.Blob{}, fmt.Errorf("sign file: %w", err)
	}

	rcpts := message.Recipients(c.crypto, c.crypto.ExtractPublicKey(priv), recipients)
	cipher, err := c.crypto.NewCipher(rcpts, signature)
	if err != nil {
		return blob.Blob{}, fmt.Errorf("encrypt file: %w", err)
	}
	defer cipher.Dispose()

	buf, err := blob.NewBuffer(opts.BufferDir)
	if err != nil {
		return blob.Blob{}, err
	}
	src, err := c.encryptInto(ctx, buf, cipher, in.Source, opts)
	if err != nil {
		_ = buf.Discard()
		return blob.Blob{}, fmt.Errorf("encrypt file: %w", err)
	}

	c.log.Debug().
		Str("name", in.Name).
		Int64("size", in.Size()).
		Int("recipients", len(rcpts)).
		Msg("file encrypted")
	return blob.Blob{Name: in.Name, ContentType: in.ContentType, Source: src}, nil
}

func (c *Codec) encryptInto(
	ctx context.Context,
	buf blob.Buffer,
	cipher domain.StreamCipher,
	src blob.Source,
	opts Options,
) (blob.Source, error) {
	head, err := cipher.Start()
	if err != nil {
		return nil, err
	}
	if _, err := buf.Write(head); err != nil {
		return nil, err
	}
	err = c.pass(ctx, src, domain.PhaseEncrypting, opts, func(b []byte) error {
		ct, err := cipher.Update(b)
		if err != nil {
			return err
		}
		_, err = buf.Write(ct)
		return err
	})
	if err != nil {
		return nil, err
	}
	tail, err := cipher.Final()
	if err != nil {
		return nil, err
	}
	if _, err := buf.Write(tail); err != nil {
		return nil, err
	}
	return buf.Source()
}

// DecryptFile decrypts in and verifies that sender signed it. A nil sender
// means the file was encrypted by this identity. Plaintext is returned only
// after the signature verified.
func (c *Codec) DecryptFile(
	ctx context.Context,
	in blob.Blob,
	sender *domain.PublicKey,
	opts Options,
) (out blob.Blob, err error) {
	defer func() { c.metrics.ObserveCrypto("decrypt_file", err) }()

	priv, err := c.keys.PrivateKey()
	if err != nil {
		return blob.Blob{}, err
	}
	defer priv.Wipe()
	signer := c.crypto.ExtractPublicKey(priv)
	if sender != nil {
		signer = *sender
	}

	buf, err := blob.NewBuffer(opts.BufferDir)
	if err != nil {
		return blob.Blob{}, err
	}
	src, err := c.decryptAndVerify(ctx, buf, priv, signer, in.Source, opts)
	if err != nil {
		_ = buf.Discard()
		return blob.Blob{}, err
	}

	c.log.Debug().Str("name", in.Name).Int64("size", src.Size()).Msg("file decrypted")
	return blob.Blob{Name: in.Name, ContentType: in.ContentType, Source: src}, nil
}

func (c *Codec) decryptAndVerify(
	ctx context.Context,
	buf blob.Buffer,
	priv domain.PrivateKey,
	signer domain.PublicKey,
	src blob.Source,
	opts Options,
) (blob.Source, error) {
	decipher, err := c.crypto.NewDecipher(priv)
	if err != nil {
		return nil, fmt.Errorf("decrypt file: %w", err)
	}
	defer decipher.Dispose()

	var integrity error
	err = c.pass(ctx, src, domain.PhaseDecrypting, opts, func(b []byte) error {
		pt, err := decipher.Update(b)
		if err != nil {
			integrity = err
			return err
		}
		_, err = buf.Write(pt)
		return err
	})
	if integrity != nil {
		return nil, domain.IntegrityCheckFailed(integrity)
	}
	if err != nil {
		return nil, fmt.Errorf("decrypt file: %w", err)
	}
	tail, err := decipher.Final()
	if err != nil {
		return nil, domain.IntegrityCheckFailed(err)
	}
	if _, err := buf.Write(tail); err != nil {
		return nil, fmt.Errorf("decrypt file: %w", err)
	}
	signature, ok := decipher.Signature()
	if !ok {
		return nil, domain.IntegrityCheckFailed(ErrUnsigned)
	}
	decipher.Dispose()

	plain, err := buf.Source()
	if err != nil {
		return nil, fmt.Errorf("decrypt file: %w", err)
	}
	verifier := c.crypto.NewVerifier(signature)
	err = c.pass(ctx, plain, domain.PhaseVerifying, opts, func(b []byte) error {
		verifier.Update(b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify file: %w", err)
	}
	if !verifier.Verify(signer) {
		return nil, domain.IntegrityCheckFailed(ErrBadSignature)
	}
	return plain, nil
}
