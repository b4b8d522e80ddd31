// internal/licensing/state.go
package licensing

import (
	"fmt"
	"sort"
)

// State is the contract's storage. Only the Engine mutates it; everything
// else reads through the accessor methods, which return copies.
type State struct {
	settings   Settings
	agreements map[uint64]Agreement
	licenses   map[uint64]License
	royalties  map[RoyaltyKey]RoyaltyRecipient
}

func NewState(platformFee uint64) *State {
	return &State{
		settings:   Settings{PlatformFee: platformFee},
		agreements: make(map[uint64]Agreement),
		licenses:   make(map[uint64]License),
		royalties:  make(map[RoyaltyKey]RoyaltyRecipient),
	}
}

func (s *State) Settings() Settings {
	return s.settings
}

func (s *State) PlatformFee() uint64 {
	return s.settings.PlatformFee
}

func (s *State) Agreement(id uint64) (Agreement, bool) {
	a, ok := s.agreements[id]
	return a.clone(), ok
}

func (s *State) License(id uint64) (License, bool) {
	l, ok := s.licenses[id]
	return l, ok
}

func (s *State) RoyaltyRecipient(agreementID uint64, recipient Principal) (RoyaltyRecipient, bool) {
	r, ok := s.royalties[RoyaltyKey{AgreementID: agreementID, Recipient: recipient}]
	return r, ok
}

func (s *State) nextAgreementID() uint64 {
	return s.settings.LastAgreementID + 1
}

func (s *State) nextLicenseID() uint64 {
	return s.settings.LastLicenseID + 1
}

// RoyaltyEntry is the flattened form of a royalty recipient used in snapshots.
type RoyaltyEntry struct {
	AgreementID uint64    `json:"agreement_id"`
	Recipient   Principal `json:"recipient"`
	Share       uint64    `json:"share"`
}

// Snapshot is a detached, serializable copy of a State.
type Snapshot struct {
	Settings   Settings             `json:"settings"`
	Agreements map[uint64]Agreement `json:"agreements"`
	Licenses   map[uint64]License   `json:"licenses"`
	Royalties  []RoyaltyEntry       `json:"royalties"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Settings:   s.settings,
		Agreements: make(map[uint64]Agreement, len(s.agreements)),
		Licenses:   make(map[uint64]License, len(s.licenses)),
		Royalties:  make([]RoyaltyEntry, 0, len(s.royalties)),
	}
	for id, a := range s.agreements {
		snap.Agreements[id] = a.clone()
	}
	for id, l := range s.licenses {
		snap.Licenses[id] = l
	}
	for key, r := range s.royalties {
		snap.Royalties = append(snap.Royalties, RoyaltyEntry{
			AgreementID: key.AgreementID,
			Recipient:   key.Recipient,
			Share:       r.Share,
		})
	}
	sort.Slice(snap.Royalties, func(i, j int) bool {
		a, b := snap.Royalties[i], snap.Royalties[j]
		if a.AgreementID != b.AgreementID {
			return a.AgreementID < b.AgreementID
		}
		return a.Recipient < b.Recipient
	})
	return snap
}

// Restore rebuilds a State from a snapshot, rejecting snapshots that break
// the contract invariants.
func Restore(snap Snapshot) (*State, error) {
	s := NewState(snap.Settings.PlatformFee)
	s.settings = snap.Settings

	for id, a := range snap.Agreements {
		if id == 0 || id > snap.Settings.LastAgreementID {
			return nil, fmt.Errorf("agreement %d outside id counter %d", id, snap.Settings.LastAgreementID)
		}
		if a.Price == 0 {
			return nil, fmt.Errorf("agreement %d: %w", id, ErrPriceNotPositive)
		}
		if a.RoyaltyRate > MaxRoyaltyRate {
			return nil, fmt.Errorf("agreement %d: %w", id, ErrRoyaltyRateTooHigh)
		}
		s.agreements[id] = a.clone()
	}

	for id, l := range snap.Licenses {
		if id == 0 || id > snap.Settings.LastLicenseID {
			return nil, fmt.Errorf("license %d outside id counter %d", id, snap.Settings.LastLicenseID)
		}
		a, ok := s.agreements[l.AgreementID]
		if !ok {
			return nil, fmt.Errorf("license %d references missing agreement %d", id, l.AgreementID)
		}
		if l.TransferCount > a.MaxTransfers {
			return nil, fmt.Errorf("license %d: transfer count %d exceeds max %d", id, l.TransferCount, a.MaxTransfers)
		}
		s.licenses[id] = l
	}

	for _, r := range snap.Royalties {
		if r.Share == 0 {
			return nil, fmt.Errorf("royalty recipient %s on agreement %d: %w", r.Recipient, r.AgreementID, ErrShareNotPositive)
		}
		s.royalties[RoyaltyKey{AgreementID: r.AgreementID, Recipient: r.Recipient}] = RoyaltyRecipient{Share: r.Share}
	}

	return s, nil
}
