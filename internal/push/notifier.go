package push

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/store"
)

// sender abstracts Service for testability.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Notifier fans share activity out to a household's push subscriptions and
// periodically reminds owners about packets that are about to expire.
type Notifier struct {
	mu       sync.RWMutex
	service  sender
	push     *store.PushStore
	packets  *store.SharePacketStore
	interval time.Duration
	reminded map[string]bool // packet id -> expiry reminder already sent
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNotifier creates a share activity notifier.
func NewNotifier(svc *Service, pushStore *store.PushStore, packetStore *store.SharePacketStore) *Notifier {
	return &Notifier{
		service:  svc,
		push:     pushStore,
		packets:  packetStore,
		interval: 60 * time.Second,
		reminded: make(map[string]bool),
	}
}

// Start begins the expiry reminder loop.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})
	n.mu.Unlock()

	go func() {
		defer close(n.done)
		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.checkExpiring()
			}
		}
	}()
}

// Stop gracefully stops the notifier.
func (n *Notifier) Stop() {
	n.mu.RLock()
	cancel := n.cancel
	done := n.done
	n.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// NotifyShareViewed tells a household's devices that a recipient opened one
// of its share packets. Called from the public access handler after a grant.
func (n *Notifier) NotifyShareViewed(householdID int64, recipientName string) {
	n.sendToHousehold(householdID, Payload{
		Title: "Share Packet Viewed",
		Body:  fmt.Sprintf("%s just opened the packet you shared", recipientName),
		URL:   "/shares",
		Tag:   "share-viewed",
	})
}

// NotifyShareRevoked tells a household's devices a packet was revoked.
// Revocation can come from any signed-in parent, so the rest of the
// household hears about it too.
func (n *Notifier) NotifyShareRevoked(householdID int64, recipientName string) {
	n.sendToHousehold(householdID, Payload{
		Title: "Share Packet Revoked",
		Body:  fmt.Sprintf("The packet shared with %s is no longer accessible", recipientName),
		URL:   "/shares",
		Tag:   "share-revoked",
	})
}

// checkExpiring sends a one-time reminder for each live packet expiring
// within the next 24 hours.
func (n *Notifier) checkExpiring() {
	cutoff := time.Now().UTC().Add(24 * time.Hour)
	packets, err := n.packets.ListExpiringBefore(cutoff)
	if err != nil {
		log.Printf("push notifier: list expiring: %v", err)
		return
	}

	for _, p := range packets {
		n.mu.Lock()
		if n.reminded[p.ID] {
			n.mu.Unlock()
			continue
		}
		n.reminded[p.ID] = true
		n.mu.Unlock()

		n.sendToHousehold(p.HouseholdID, Payload{
			Title: "Share Packet Expiring",
			Body:  fmt.Sprintf("The packet shared with %s expires within 24 hours", p.RecipientName),
			URL:   "/shares",
			Tag:   fmt.Sprintf("share-expiring-%s", p.ID),
		})
	}
}

func (n *Notifier) sendToHousehold(householdID int64, payload Payload) {
	subs, err := n.push.ListByHousehold(householdID)
	if err != nil {
		log.Printf("push notifier: list subscriptions: %v", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				n.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				log.Printf("push notifier: send: %v", err)
			}
		}
	}
}
