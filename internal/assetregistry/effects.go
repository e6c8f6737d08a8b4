package assetregistry

import (
	"encoding/json"
	"fmt"

	"github.com/dom/hero-arena/internal/domain"
)

// RegisterReceiver asks a card contract to notify the arena of incoming
// transfers.
type RegisterReceiver struct {
	Receiver string `json:"receiver"`
}

// SetViewingKey sets the key the arena uses to read private metadata.
type SetViewingKey struct {
	Key string `json:"key"`
}

// Transfer moves tokens to a recipient.
type Transfer struct {
	Recipient string   `json:"recipient"`
	TokenIDs  []string `json:"tokenIds"`
}

// BatchTransfer moves several sets of tokens in one message.
type BatchTransfer struct {
	Transfers []Transfer `json:"transfers"`
}

// SetSecretMetadata replaces a token's private metadata.
type SetSecretMetadata struct {
	TokenID  string    `json:"tokenId"`
	Metadata *Metadata `json:"metadata"`
}

// ApprovalGrant lets an owner keep transfer rights over a token while it
// waits in the bullpen.
type ApprovalGrant struct {
	Owner   string `json:"owner"`
	TokenID string `json:"tokenId"`
}

// NewEffect builds an outbox row addressed to a card contract.
func NewEffect(kind domain.EffectKind, contract domain.CardContract, payload any) (*domain.OutboxEffect, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return &domain.OutboxEffect{
		Kind:        kind,
		Destination: contract.Address,
		URL:         contract.URL,
		Payload:     data,
	}, nil
}

// TransfersByVersion groups transfers back to owners by the card contract
// version each hero came from, one batch transfer per version, in the order
// versions are first seen.
func TransfersByVersion(heroes []domain.WaitingHero, versions []domain.CardContract) ([]*domain.OutboxEffect, error) {
	var order []uint8
	grouped := map[uint8][]Transfer{}
	for _, h := range heroes {
		v := h.TokenInfo.Version
		if _, ok := grouped[v]; !ok {
			order = append(order, v)
		}
		grouped[v] = append(grouped[v], Transfer{Recipient: h.Owner, TokenIDs: []string{h.TokenInfo.TokenID}})
	}

	effects := make([]*domain.OutboxEffect, 0, len(order))
	for _, v := range order {
		if int(v) >= len(versions) {
			return nil, fmt.Errorf("card contract version %d not registered", v)
		}
		effect, err := NewEffect(domain.EffectBatchTransfer, versions[v], BatchTransfer{Transfers: grouped[v]})
		if err != nil {
			return nil, err
		}
		effects = append(effects, effect)
	}
	return effects, nil
}
