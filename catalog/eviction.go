package catalog

import (
	"encoding/base64"
	"fmt"
)

// EvictionHighWater is the usage fraction above which admins are expected to
// run an eviction pass. Eviction is invoked explicitly, never on a write path.
const EvictionHighWater = 0.8

// DefaultEvictionCap is the per-item image count left behind by CapImages.
const DefaultEvictionCap = 3

// NeedsEviction reports whether usage has crossed the high-water mark.
func (r *Repository) NeedsEviction() (bool, error) {
	frac, err := r.ledger.UsageFraction()
	if err != nil {
		return false, err
	}
	return frac > EvictionHighWater, nil
}

// EvictCapImages trims every item's image list to at most max entries,
// discarding from the tail, and re-persists the catalog once. It returns the
// number of images removed.
func (r *Repository) EvictCapImages(max int) (int, error) {
	if max < 0 {
		return 0, fmt.Errorf("%w: negative image cap", ErrInvalidInput)
	}
	return r.evict(func(images []ImageRef) []ImageRef {
		if len(images) <= max {
			return images
		}
		return images[:max]
	})
}

// EvictInvalidImages removes every owned image whose payload is empty or not
// structurally valid base64, across all items, then re-persists once.
func (r *Repository) EvictInvalidImages() (int, error) {
	return r.evict(func(images []ImageRef) []ImageRef {
		kept := images[:0]
		for _, img := range images {
			if validRef(img) {
				kept = append(kept, img)
			}
		}
		return kept
	})
}

// evict applies trim to every item's images and performs one batched persist
// after processing all items, avoiding repeated large writes.
func (r *Repository) evict(trim func([]ImageRef) []ImageRef) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := cloneItems(r.items)
	removed := 0
	for i := range candidate {
		before := len(candidate[i].Images)
		candidate[i].Images = trim(candidate[i].Images)
		removed += before - len(candidate[i].Images)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.persistItems(candidate); err != nil {
		return 0, err
	}
	r.items = candidate
	r.log.Info("eviction pass complete", "removed", removed)
	return removed, nil
}

func validRef(img ImageRef) bool {
	if img.External() {
		return true
	}
	if img.Data == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(img.Data)
	return err == nil
}
