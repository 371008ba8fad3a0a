package client

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const randomFloatDivisor = 1000000

var (
	itemTypes  = []string{"event", "event", "event", "news", "resource"}
	topics     = []string{"Repair Cafe", "Seed Swap", "Tenant Union Meeting", "Tool Library", "Mutual Aid Potluck", "Bike Clinic", "Skill Share", "Community Garden Workday"}
	places     = []string{"Main St Hall", "Library Annex", "Riverside Park", "Union Hall", "Online"}
	submitters = []string{"automation:meetup-scraper", "automation:rss", "partner:coop-network", "manual:volunteer"}
	hosts      = []string{"example.org", "events.example.com", "news.example.net"}
	tagSets    = [][]string{{"community"}, {"repair", "sustainability"}, {"housing"}, {"food", "mutual-aid"}, {}}
)

// randomFloat returns a value in [0, 1).
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func pick[T any](xs []T) T {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(xs))))
	return xs[n.Int64()]
}

// GenerateItems creates n synthetic candidate items. Roughly dupRate of them
// repeat an earlier item with cosmetic changes (case and whitespace) so the
// deduplicator has work to do.
func GenerateItems(n int, dupRate float64, now time.Time) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && randomFloat() < dupRate {
			items = append(items, cosmeticCopy(pick(items)))
			continue
		}
		items = append(items, newItem(i, now))
	}
	return items
}

func newItem(i int, now time.Time) Item {
	topic := pick(topics)
	id := uuid.NewString()[:8]
	it := Item{
		Type:          pick(itemTypes),
		Title:         fmt.Sprintf("%s #%d %s", topic, i, id),
		Description:   fmt.Sprintf("%s open to everyone. Bring a friend.", topic),
		Location:      pick(places),
		SourceURL:     fmt.Sprintf("https://%s/%s", pick(hosts), id),
		OrganizerName: "Neighbourhood Assembly",
		Tags:          pick(tagSets),
		SubmittedBy:   pick(submitters),
	}
	if it.Type == "event" {
		days := 1 + int(randomFloat()*60)
		it.OccurrenceDate = now.AddDate(0, 0, days).Format("2006-01-02 15:04")
	}
	if randomFloat() < 0.3 {
		price := float64(int(randomFloat()*2000)) / 100
		it.Price = &price
	}
	return it
}

// cosmeticCopy changes nothing the fingerprint looks at.
func cosmeticCopy(it Item) Item {
	cp := it
	cp.Title = "  " + it.Title + " "
	cp.Description = it.Description + " (reposted)"
	return cp
}
