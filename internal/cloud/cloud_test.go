package cloud_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"sealkit/internal/backup"
	"sealkit/internal/cloud"
	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/observability"
)

type fixture struct {
	dir     *cloud.DirectoryClient
	backups *cloud.BackupClient
	issuer  domain.Ed25519Public
	url     string
}

func newFixture(t *testing.T, token string) fixture {
	t.Helper()
	issuerPriv, issuerPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := cloud.NewServer(cloud.NewDirectory(&issuerPriv), backup.NewMemory(), cloud.ServerOptions{
		Token:    token,
		Metrics:  observability.NewMetrics(reg),
		Gatherer: reg,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	opts := cloud.ClientOptions{Tokens: cloud.StaticToken(token), RateLimit: 1000, Burst: 10}
	return fixture{
		dir:     cloud.NewDirectoryClient(ts.URL, opts),
		backups: cloud.NewBackupClient(ts.URL, opts),
		issuer:  issuerPub,
		url:     ts.URL,
	}
}

func signedCard(t *testing.T, identity domain.Identity, previous string) (domain.Card, domain.KeyPair) {
	t.Helper()
	p := crypto.New()
	kp, err := p.GenerateKeyPair()
	require.NoError(t, err)
	card := domain.Card{
		Identity:       identity,
		PublicKey:      p.ExportPublicKey(kp.Public),
		PreviousCardID: previous,
		CreatedAt:      time.Now().UnixNano(),
	}
	card.Signatures = []domain.CardSignature{{Signer: domain.SignerSelf, Signature: crypto.SignCard(kp.Private.Signing, card)}}
	return card, kp
}

func TestDirectory_PublishSearchSupersede(t *testing.T) {
	f := newFixture(t, "secret")
	ctx := context.Background()

	card, _ := signedCard(t, "alice", "")
	first, err := f.dir.PublishCard(ctx, card)
	require.NoError(t, err)
	require.Equal(t, card.ComputeID(), first.ID)
	issuerSig, ok := first.Signature(domain.SignerIssuer)
	require.True(t, ok)
	require.True(t, crypto.VerifyCard(f.issuer, first, issuerSig))

	next, _ := signedCard(t, "alice", first.ID)
	second, err := f.dir.PublishCard(ctx, next)
	require.NoError(t, err)

	cards, err := f.dir.SearchCards(ctx, []domain.Identity{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, second.ID, cards[0].ID)

	stale, _ := signedCard(t, "alice", first.ID)
	_, err = f.dir.PublishCard(ctx, stale)
	require.ErrorIs(t, err, domain.ErrStaleRecord)
}

func TestDirectory_PublishWithoutPreviousAddsLiveCard(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for range 2 {
		card, _ := signedCard(t, "carol", "")
		_, err := f.dir.PublishCard(ctx, card)
		require.NoError(t, err)
	}
	cards, err := f.dir.SearchCards(ctx, []domain.Identity{"carol"})
	require.NoError(t, err)
	require.Len(t, cards, 2)
}

func TestDirectory_RejectsBadSelfSignature(t *testing.T) {
	f := newFixture(t, "")
	card, _ := signedCard(t, "dave", "")
	card.CreatedAt++

	_, err := f.dir.PublishCard(context.Background(), card)
	var se *cloud.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Status)
}

func TestServer_RequiresToken(t *testing.T) {
	f := newFixture(t, "secret")
	bad := cloud.NewDirectoryClient(f.url, cloud.ClientOptions{Tokens: cloud.StaticToken("nope")})
	_, err := bad.SearchCards(context.Background(), []domain.Identity{"alice"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	resp, err := http.Get(f.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestBackupClient_RoundTrip(t *testing.T) {
	f := newFixture(t, "secret")
	ctx := context.Background()
	identity := domain.Identity("erin/with slash")

	_, err := f.backups.Fetch(ctx, identity, "id1")
	require.ErrorIs(t, err, domain.ErrBackupNotFound)

	require.NoError(t, f.backups.Store(ctx, identity, "id1", []byte("sealed")))
	require.ErrorIs(t, f.backups.Store(ctx, identity, "id1", []byte("again")), domain.ErrBackupExists)

	got, err := f.backups.Fetch(ctx, identity, "id1")
	require.NoError(t, err)
	require.Equal(t, []byte("sealed"), got)

	require.NoError(t, f.backups.Replace(ctx, identity, "id1", "id2", []byte("resealed")))
	got, err = f.backups.Fetch(ctx, identity, "id2")
	require.NoError(t, err)
	require.Equal(t, []byte("resealed"), got)

	require.NoError(t, f.backups.Store(ctx, identity, "id3", []byte("x")))
	require.NoError(t, f.backups.Delete(ctx, identity, "id3"))
	require.ErrorIs(t, f.backups.Delete(ctx, identity, "id3"), domain.ErrBackupNotFound)

	require.NoError(t, f.backups.DeleteAll(ctx, identity))
	_, err = f.backups.Fetch(ctx, identity, "id2")
	require.ErrorIs(t, err, domain.ErrBackupNotFound)
}

func TestBackupClient_IdentitiesAreDecodedOnce(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	require.NoError(t, f.backups.Store(ctx, "aA", "id1", []byte("aA-secret")))
	_, err := f.backups.Fetch(ctx, "a%41", "id1")
	require.ErrorIs(t, err, domain.ErrBackupNotFound)

	require.NoError(t, f.backups.Store(ctx, "a%41", "id1", []byte("other")))
	require.NoError(t, f.backups.DeleteAll(ctx, "a%41"))
	got, err := f.backups.Fetch(ctx, "aA", "id1")
	require.NoError(t, err)
	require.Equal(t, []byte("aA-secret"), got)

	for _, identity := range []domain.Identity{"50%", "x/y", "100%/a b"} {
		require.NoError(t, f.backups.Store(ctx, identity, "id%2F1", []byte(identity)))
		got, err := f.backups.Fetch(ctx, identity, "id%2F1")
		require.NoError(t, err, identity)
		require.Equal(t, []byte(identity), got)
		require.NoError(t, f.backups.Replace(ctx, identity, "id%2F1", "id2", []byte("next")))
		require.NoError(t, f.backups.Delete(ctx, identity, "id2"))
	}
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	f := newFixture(t, "")
	c := cloud.NewDirectoryClient(f.url, cloud.ClientOptions{RateLimit: 0.001, Burst: 1})
	ctx := context.Background()
	_, err := c.SearchCards(ctx, []domain.Identity{"a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = c.SearchCards(ctx, []domain.Identity{"a"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "rate") || ctx.Err() != nil)
}
