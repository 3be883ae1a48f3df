package model

import (
	"strings"
	"time"
)

// SoldStatus is a player's sale outcome.
type SoldStatus string

const (
	StatusOpen   SoldStatus = "OPEN"
	StatusSold   SoldStatus = "SOLD"
	StatusUnsold SoldStatus = "UNSOLD"
)

// NormalizeSoldStatus maps loosely typed status input onto the enum,
// defaulting to OPEN for anything unrecognized.
func NormalizeSoldStatus(raw string) SoldStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StatusSold):
		return StatusSold
	case string(StatusUnsold):
		return StatusUnsold
	default:
		return StatusOpen
	}
}

// Card is the opaque sale artifact assigned to a sold player.
type Card struct {
	ID    string            `json:"id" db:"id"`
	Label string            `json:"label" db:"label"`
	Style map[string]string `json:"style,omitempty"`
}

// Clone returns an independent copy of the card.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Style != nil {
		cp.Style = make(map[string]string, len(c.Style))
		for k, v := range c.Style {
			cp.Style[k] = v
		}
	}
	return &cp
}

// Player is one auctionable player. Instances are created on pool load and
// mutated only through auction state transitions; a reset clears fields but
// never removes records.
type Player struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Country  string `json:"country" db:"country"`
	Image    string `json:"image,omitempty" db:"image"`
	Rating   int    `json:"rating" db:"rating"`
	Category string `json:"category" db:"category"`

	BasePrice  Money `json:"basePrice" db:"base_price"`
	CurrentBid Money `json:"currentBid" db:"current_bid"`

	SoldStatus    SoldStatus `json:"soldStatus" db:"sold_status"`
	SoldTo        string     `json:"soldTo,omitempty" db:"sold_to"`
	SoldPrice     *Money     `json:"soldPrice,omitempty" db:"sold_price"`
	SoldAt        *time.Time `json:"soldAt,omitempty" db:"sold_at"`
	AssignedCard  *Card      `json:"assignedCard,omitempty"`
	HighestBidder string     `json:"highestBidder,omitempty" db:"highest_bidder"`
	Closed        bool       `json:"isClosed" db:"is_closed"`

	// BidHistory is the player's full bid trail, appended on every accepted
	// bid and kept across sale outcomes.
	BidHistory []Bid `json:"biddingHistory,omitempty"`
}

// Role derives the standard role from the player's category.
func (p *Player) Role() Role {
	return RoleForCategory(p.Category)
}

// Open reports whether the player is still biddable.
func (p *Player) Open() bool {
	return p.SoldStatus == StatusOpen && !p.Closed
}

// Clone returns a structurally independent copy of the player.
func (p Player) Clone() Player {
	cp := p
	cp.AssignedCard = p.AssignedCard.Clone()
	if p.SoldPrice != nil {
		v := *p.SoldPrice
		cp.SoldPrice = &v
	}
	if p.SoldAt != nil {
		t := *p.SoldAt
		cp.SoldAt = &t
	}
	if p.BidHistory != nil {
		cp.BidHistory = make([]Bid, len(p.BidHistory))
		copy(cp.BidHistory, p.BidHistory)
	}
	return cp
}

// ClearSale resets every sale-outcome field back to the OPEN shape. Bid
// fields are left alone; callers decide those separately.
func (p *Player) ClearSale() {
	p.SoldStatus = StatusOpen
	p.SoldTo = ""
	p.SoldPrice = nil
	p.SoldAt = nil
	p.AssignedCard = nil
	p.Closed = false
}
