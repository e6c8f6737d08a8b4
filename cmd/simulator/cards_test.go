package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardContract_ServesArenaClient(t *testing.T) {
	server := httptest.NewServer(NewCardContract().Router())
	t.Cleanup(server.Close)

	contract := domain.CardContract{Address: "cards-sim", URL: server.URL}
	client := assetregistry.NewClient("arena-sim", 5*time.Second)
	ctx := context.Background()

	skills := domain.Skills{40, 50, 60, 70}
	tokenID, err := mint(server.Client(), server.URL, "alice", "Rex", skills)
	require.NoError(t, err)

	meta, err := client.PrivateMetadata(ctx, contract, tokenID, "arena-sim", "key")
	require.NoError(t, err)
	assert.Equal(t, "Rex", meta.HeroName())
	stats, err := assetregistry.DecodeStats(meta)
	require.NoError(t, err)
	assert.Equal(t, domain.HeroStats{Base: skills, Current: skills}, stats)

	_, err = client.PrivateMetadata(ctx, contract, "missing", "arena-sim", "key")
	assert.ErrorIs(t, err, domain.ErrMissingHeroStats)

	// Effects from the outbox change ownership and metadata
	upgraded := domain.HeroStats{Base: skills, Current: domain.Skills{43, 50, 60, 70}}
	newMeta, err := assetregistry.StatsMetadata("Rex", upgraded)
	require.NoError(t, err)
	for _, effect := range []struct {
		kind    domain.EffectKind
		payload any
	}{
		{domain.EffectSetSecretMetadata, assetregistry.SetSecretMetadata{TokenID: tokenID, Metadata: newMeta}},
		{domain.EffectBatchTransfer, assetregistry.BatchTransfer{Transfers: []assetregistry.Transfer{{Recipient: "bob", TokenIDs: []string{tokenID}}}}},
		{domain.EffectSetViewingKey, assetregistry.SetViewingKey{Key: "key"}},
	} {
		e, err := assetregistry.NewEffect(effect.kind, contract, effect.payload)
		require.NoError(t, err)
		require.NoError(t, client.Deliver(ctx, e), "deliver %s", effect.kind)
	}

	resp, err := server.Client().Get(server.URL + "/tokens/" + tokenID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok cardToken
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	assert.Equal(t, "bob", tok.Owner)
	stats, err = assetregistry.DecodeStats(tok.Metadata)
	require.NoError(t, err)
	assert.Equal(t, upgraded, stats)
}

func TestCardContract_RejectsUnknownEffect(t *testing.T) {
	server := httptest.NewServer(NewCardContract().Router())
	t.Cleanup(server.Close)

	resp, err := postJSON(server.Client(), server.URL+"/effects/burn", map[string]string{}, "")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRandomSkills_InRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		for _, s := range randomSkills() {
			assert.GreaterOrEqual(t, int(s), domain.MinSkill)
			assert.LessOrEqual(t, int(s), domain.MaxSkill)
		}
	}
}
