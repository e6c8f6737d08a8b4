package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// cardToken is one hero card held by the fake contract.
type cardToken struct {
	Owner    string                  `json:"owner"`
	Metadata *assetregistry.Metadata `json:"metadata"`
}

// CardContract is an in-memory stand-in for a card contract. It serves the
// private metadata the arena reads on arrival and applies the effects the
// arena's outbox delivers.
type CardContract struct {
	mu     sync.RWMutex
	tokens map[string]*cardToken
}

func NewCardContract() *CardContract {
	return &CardContract{tokens: make(map[string]*cardToken)}
}

type mintRequest struct {
	Owner  string        `json:"owner"`
	Name   string        `json:"name"`
	Skills domain.Skills `json:"skills"`
}

func (c *CardContract) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Post("/tokens", c.mint)
	r.Get("/tokens/{id}", c.token)
	r.Get("/tokens/{id}/private-metadata", c.privateMetadata)
	r.Post("/effects/{kind}", c.effect)
	return r
}

func (c *CardContract) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	meta, err := assetregistry.StatsMetadata(req.Name, domain.HeroStats{Base: req.Skills, Current: req.Skills})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	c.mu.Lock()
	c.tokens[id] = &cardToken{Owner: req.Owner, Metadata: meta}
	c.mu.Unlock()

	writeJSON(w, map[string]string{"tokenId": id})
}

func (c *CardContract) token(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	tok, ok := c.tokens[chi.URLParam(r, "id")]
	c.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, tok)
}

func (c *CardContract) privateMetadata(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	tok, ok := c.tokens[chi.URLParam(r, "id")]
	c.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, tok.Metadata)
}

func (c *CardContract) effect(w http.ResponseWriter, r *http.Request) {
	kind := domain.EffectKind(chi.URLParam(r, "kind"))
	if err := c.apply(kind, json.NewDecoder(r.Body)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("applied %s from %s", kind, r.Header.Get("X-Arena-Instance"))
	w.WriteHeader(http.StatusNoContent)
}

func (c *CardContract) apply(kind domain.EffectKind, dec *json.Decoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case domain.EffectTransfer:
		var t assetregistry.Transfer
		if err := dec.Decode(&t); err != nil {
			return err
		}
		c.transfer(t)
	case domain.EffectBatchTransfer:
		var b assetregistry.BatchTransfer
		if err := dec.Decode(&b); err != nil {
			return err
		}
		for _, t := range b.Transfers {
			c.transfer(t)
		}
	case domain.EffectSetSecretMetadata:
		var m assetregistry.SetSecretMetadata
		if err := dec.Decode(&m); err != nil {
			return err
		}
		tok, ok := c.tokens[m.TokenID]
		if !ok {
			return fmt.Errorf("unknown token %s", m.TokenID)
		}
		tok.Metadata = m.Metadata
	case domain.EffectRegisterReceiver, domain.EffectSetViewingKey, domain.EffectApprovalGrant:
		// Accepted without state; the fake contract has no access control.
	default:
		return fmt.Errorf("unsupported effect %s", kind)
	}
	return nil
}

func (c *CardContract) transfer(t assetregistry.Transfer) {
	for _, id := range t.TokenIDs {
		if tok, ok := c.tokens[id]; ok {
			tok.Owner = t.Recipient
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
