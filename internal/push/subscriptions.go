package push

import (
	"strings"

	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/store"
)

type subscriptionSet struct {
	Subscriptions []model.PushSubscription `json:"subscriptions"`
}

// Subscriptions is the persisted set of push endpoints.
type Subscriptions struct {
	doc *store.Document[subscriptionSet]
}

func NewSubscriptions(dir *store.Dir) *Subscriptions {
	doc := store.Open(dir, "push-subscriptions",
		func() subscriptionSet { return subscriptionSet{} },
		func(s *subscriptionSet) {
			if s.Subscriptions == nil {
				s.Subscriptions = []model.PushSubscription{}
			}
		})
	return &Subscriptions{doc: doc}
}

func (s *Subscriptions) List() ([]model.PushSubscription, error) {
	set, err := s.doc.Get()
	if err != nil {
		return nil, err
	}
	return set.Subscriptions, nil
}

func (s *Subscriptions) Count() (int, error) {
	list, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Add stores sub, replacing any subscription with the same endpoint.
func (s *Subscriptions) Add(sub model.PushSubscription) error {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	return s.doc.Mutate(func(set *subscriptionSet) error {
		for i := range set.Subscriptions {
			if set.Subscriptions[i].Endpoint == sub.Endpoint {
				set.Subscriptions[i] = sub
				return nil
			}
		}
		set.Subscriptions = append(set.Subscriptions, sub)
		return nil
	})
}

// Remove drops the listed endpoints and reports how many were present.
func (s *Subscriptions) Remove(endpoints ...string) (int, error) {
	if len(endpoints) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(endpoints))
	for _, endpoint := range endpoints {
		drop[strings.TrimSpace(endpoint)] = struct{}{}
	}

	removed := 0
	err := s.doc.Mutate(func(set *subscriptionSet) error {
		kept := set.Subscriptions[:0]
		for _, sub := range set.Subscriptions {
			if _, ok := drop[sub.Endpoint]; ok {
				removed++
				continue
			}
			kept = append(kept, sub)
		}
		set.Subscriptions = kept
		return nil
	})
	return removed, err
}
