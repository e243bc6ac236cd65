package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Durable namespace keys. Only the repository writes these.
const (
	itemsKey  = "catalog/items"
	coversKey = "catalog/covers"
)

// Defaults for the repository's admission limits.
const (
	DefaultMaxImagesPerItem = 10
	DefaultMaxCovers        = 8
)

// Repository owns the in-memory catalog and mediates every mutation. Each
// mutating call runs start-to-finish under one mutex (a mutation queue of
// depth 1): compression, the quota check and the durable write never
// interleave with another mutation. After every successful mutation the whole
// catalog is re-serialized into the durable namespace.
type Repository struct {
	mu     sync.Mutex
	store  *KVStore
	ledger *Ledger
	log    *slog.Logger

	maxImagesPerItem int
	imageBudget      int
	maxCovers        int

	items  []Item
	covers []ImageRef
}

// RepoOption configures a Repository.
type RepoOption func(*Repository)

// WithMaxImagesPerItem caps how many images one item may hold.
func WithMaxImagesPerItem(n int) RepoOption {
	return func(r *Repository) { r.maxImagesPerItem = n }
}

// WithImageBudget sets the per-image compression byte budget.
func WithImageBudget(n int) RepoOption {
	return func(r *Repository) { r.imageBudget = n }
}

// WithMaxCovers caps the cover-photo list length.
func WithMaxCovers(n int) RepoOption {
	return func(r *Repository) { r.maxCovers = n }
}

// NewRepository loads the catalog and cover-photo list from the durable
// namespace, seeding the catalog with the embedded sample data when the store
// is empty. capacity is the logical quota in bytes.
func NewRepository(store *KVStore, capacity int64, log *slog.Logger, opts ...RepoOption) (*Repository, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Repository{
		store:            store,
		ledger:           NewLedger(store, capacity),
		log:              log,
		maxImagesPerItem: DefaultMaxImagesPerItem,
		imageBudget:      DefaultImageBudget,
		maxCovers:        DefaultMaxCovers,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.load(); err != nil {
		return nil, fmt.Errorf("catalog: load: %w", err)
	}
	return r, nil
}

func (r *Repository) load() error {
	data, err := r.store.Get(itemsKey)
	if err != nil {
		return err
	}
	if data == nil {
		items, err := seedItems()
		if err != nil {
			return err
		}
		r.items = items
		// Best effort: an unseedable store still yields a usable in-memory
		// catalog, just without durability until the next successful write.
		if err := r.persistItems(items); err != nil {
			r.log.Warn("seed persist failed", "error", err)
		}
	} else if err := json.Unmarshal(data, &r.items); err != nil {
		return err
	}

	data, err = r.store.Get(coversKey)
	if err != nil {
		return err
	}
	if data != nil {
		if err := json.Unmarshal(data, &r.covers); err != nil {
			return err
		}
	}
	return nil
}

// AddItem creates an item from draft, compressing up to MaxImagesPerItem of
// files in submission order. Images that fail to decode are skipped; images
// that no longer fit the quota silently truncate the remainder. The textual
// record itself failing admission rejects the whole call with
// ErrQuotaExceeded and leaves the catalog untouched. A durable write failure
// degrades the commit to an image-free item; if even that write fails the
// call returns ErrStorageExhausted and no item is added.
func (r *Repository) AddItem(draft Draft, files [][]byte) (Item, Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(draft.Brand) == "" || strings.TrimSpace(draft.Model) == "" {
		return Item{}, Committed, fmt.Errorf("%w: brand and model are required", ErrInvalidInput)
	}

	it := Item{
		ID:          uuid.NewString(),
		Brand:       strings.TrimSpace(draft.Brand),
		Model:       strings.TrimSpace(draft.Model),
		Year:        draft.Year,
		Price:       draft.Price,
		Category:    draft.Category,
		Condition:   draft.Condition,
		Mileage:     draft.Mileage,
		Description: draft.Description,
		Features:    append([]string(nil), draft.Features...),
		Images:      []ImageRef{},
		Featured:    draft.Featured,
	}

	candidate := append(cloneItems(r.items), it)
	idx := len(candidate) - 1

	// The bare textual record must fit before any image is considered.
	if ok, err := r.admits(candidate); err != nil {
		return Item{}, Committed, err
	} else if !ok {
		return Item{}, Committed, fmt.Errorf("%w: cannot admit item %s", ErrQuotaExceeded, it.ID)
	}

	if err := r.admitImages(candidate, idx, files); err != nil {
		return Item{}, Committed, err
	}
	r.stashOriginal(it.ID, files)

	outcome, err := r.commit(candidate, idx)
	if err != nil {
		return Item{}, outcome, err
	}
	r.items = candidate
	return cloneItem(candidate[idx]), outcome, nil
}

// UpdateItem patches an existing item and appends any new images to its
// existing list, subject to the same quota pre-check and degraded-write
// fallback as AddItem. The image cap is enforced on the combined list,
// dropping excess from the tail.
func (r *Repository) UpdateItem(id string, patch Patch, files [][]byte) (Item, Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexOf(id)
	if pos < 0 {
		return Item{}, Committed, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	candidate := cloneItems(r.items)
	patch.apply(&candidate[pos])

	if ok, err := r.admits(candidate); err != nil {
		return Item{}, Committed, err
	} else if !ok {
		return Item{}, Committed, fmt.Errorf("%w: cannot admit update to %s", ErrQuotaExceeded, id)
	}

	if err := r.admitImages(candidate, pos, files); err != nil {
		return Item{}, Committed, err
	}

	outcome, err := r.commit(candidate, pos)
	if err != nil {
		return Item{}, outcome, err
	}
	r.items = candidate
	return cloneItem(candidate[pos]), outcome, nil
}

// DeleteItem removes an item and releases the image data it owns. Deleting an
// absent id is a no-op: deletion is idempotent by design.
func (r *Repository) DeleteItem(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexOf(id)
	if pos < 0 {
		return nil
	}
	cloned := cloneItems(r.items)
	candidate := append(cloned[:pos], cloned[pos+1:]...)
	if err := r.persistItems(candidate); err != nil {
		return err
	}
	r.store.TransientRemove(uploadKey(id))
	r.items = candidate
	return nil
}

// Item returns a single item by id.
func (r *Repository) Item(id string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexOf(id)
	if pos < 0 {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneItem(r.items[pos]), nil
}

// Items returns the catalog filtered by f. Without a sort override, items come
// back in insertion order.
func (r *Repository) Items(f Filter) []Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		if f.matches(it) {
			out = append(out, cloneItem(it))
		}
	}
	sortItems(out, f.SortBy, f.SortOrder)
	return out
}

// ReorderImages rearranges an item's images according to order, a permutation
// of the current indices. Membership never changes, only order.
func (r *Repository) ReorderImages(id string, order []int) error {
	return r.rearrange(id, func(images []ImageRef) ([]ImageRef, error) {
		if len(order) != len(images) {
			return nil, fmt.Errorf("%w: order has %d entries for %d images", ErrInvalidInput, len(order), len(images))
		}
		seen := make([]bool, len(images))
		out := make([]ImageRef, len(images))
		for i, from := range order {
			if from < 0 || from >= len(images) || seen[from] {
				return nil, fmt.Errorf("%w: order is not a permutation", ErrInvalidInput)
			}
			seen[from] = true
			out[i] = images[from]
		}
		return out, nil
	})
}

// ReverseImages reverses an item's image sequence.
func (r *Repository) ReverseImages(id string) error {
	return r.rearrange(id, func(images []ImageRef) ([]ImageRef, error) {
		out := make([]ImageRef, len(images))
		for i, img := range images {
			out[len(images)-1-i] = img
		}
		return out, nil
	})
}

// ShuffleImages randomizes an item's image sequence.
func (r *Repository) ShuffleImages(id string) error {
	return r.rearrange(id, func(images []ImageRef) ([]ImageRef, error) {
		out := append([]ImageRef(nil), images...)
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out, nil
	})
}

func (r *Repository) rearrange(id string, fn func([]ImageRef) ([]ImageRef, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexOf(id)
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	images, err := fn(r.items[pos].Images)
	if err != nil {
		return err
	}
	candidate := cloneItems(r.items)
	candidate[pos].Images = images
	if err := r.persistItems(candidate); err != nil {
		return err
	}
	r.items = candidate
	return nil
}

// Covers returns the cover-photo list in order.
func (r *Repository) Covers() []ImageRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ImageRef(nil), r.covers...)
}

// AddCover thumbnails blob and appends it to the cover-photo list, which has
// its own count cap and is persisted independently of the catalog.
func (r *Repository) AddCover(blob []byte) (ImageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.covers) >= r.maxCovers {
		return ImageRef{}, fmt.Errorf("%w: cover list is full (%d)", ErrQuotaExceeded, r.maxCovers)
	}
	thumb, err := Thumbnail(blob)
	if err != nil {
		return ImageRef{}, err
	}
	candidate := append(append([]ImageRef(nil), r.covers...), thumb.Ref())
	data, err := json.Marshal(candidate)
	if err != nil {
		return ImageRef{}, err
	}
	if ok, err := r.ledger.CanAdmit(int64(len(data))); err != nil {
		return ImageRef{}, err
	} else if !ok {
		return ImageRef{}, fmt.Errorf("%w: cannot admit cover photo", ErrQuotaExceeded)
	}
	if err := r.store.Set(coversKey, data); err != nil {
		return ImageRef{}, err
	}
	r.covers = candidate
	return thumb.Ref(), nil
}

// RemoveCover deletes the cover photo at index i.
func (r *Repository) RemoveCover(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.covers) {
		return fmt.Errorf("%w: cover %d", ErrNotFound, i)
	}
	candidate := append(append([]ImageRef(nil), r.covers[:i]...), r.covers[i+1:]...)
	data, err := json.Marshal(candidate)
	if err != nil {
		return err
	}
	if err := r.store.Set(coversKey, data); err != nil {
		return err
	}
	r.covers = candidate
	return nil
}

// Original returns the session-retained full-resolution upload for an item,
// or nil if none was kept (or the session restarted).
func (r *Repository) Original(id string) []byte {
	return r.store.TransientGet(uploadKey(id))
}

// StorageInfo reports quota status for the view layer.
func (r *Repository) StorageInfo() (StorageInfo, error) {
	return r.ledger.Info()
}

// UsageFraction reports durable usage as a fraction of capacity.
func (r *Repository) UsageFraction() (float64, error) {
	return r.ledger.UsageFraction()
}

// --- mutation internals ---

// admitImages compresses files in submission order into candidate[idx],
// skipping undecodable uploads and stopping the moment the projected
// serialized catalog no longer fits the quota. The remainder is truncated
// silently; only store read errors propagate.
func (r *Repository) admitImages(candidate []Item, idx int, files [][]byte) error {
	for _, blob := range files {
		if len(candidate[idx].Images) >= r.maxImagesPerItem {
			break
		}
		comp, err := Compress(blob, r.imageBudget)
		if err != nil {
			// Local failure: skip this image, keep processing the rest.
			r.log.Warn("skipping image upload", "item", candidate[idx].ID, "error", err)
			continue
		}
		candidate[idx].Images = append(candidate[idx].Images, comp.Ref())
		ok, err := r.admits(candidate)
		if err != nil {
			return err
		}
		if !ok {
			candidate[idx].Images = candidate[idx].Images[:len(candidate[idx].Images)-1]
			r.log.Warn("quota reached, truncating remaining uploads",
				"item", candidate[idx].ID, "accepted", len(candidate[idx].Images))
			break
		}
	}
	return nil
}

// admits measures the real serialized payload of candidate against the ledger.
func (r *Repository) admits(candidate []Item) (bool, error) {
	data, err := json.Marshal(candidate)
	if err != nil {
		return false, err
	}
	return r.ledger.CanAdmit(int64(len(data)))
}

// commit writes candidate durably. On failure it strips the mutated item's
// images and retries once (degraded commit); a second failure is
// ErrStorageExhausted and the caller must discard candidate.
func (r *Repository) commit(candidate []Item, idx int) (Outcome, error) {
	err := r.persistItems(candidate)
	if err == nil {
		return Committed, nil
	}
	r.log.Warn("durable write failed, retrying without images", "item", candidate[idx].ID, "error", err)
	candidate[idx].Images = []ImageRef{}
	if err := r.persistItems(candidate); err != nil {
		return Committed, fmt.Errorf("%w: %v", ErrStorageExhausted, err)
	}
	return DegradedCommitted, nil
}

func (r *Repository) persistItems(items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.store.Set(itemsKey, data)
}

// stashOriginal keeps one full-resolution upload per item in the transient
// namespace; only the compressed form lives durably.
func (r *Repository) stashOriginal(id string, files [][]byte) {
	for _, blob := range files {
		if len(blob) > 0 {
			r.store.TransientSet(uploadKey(id), blob)
			return
		}
	}
}

func (r *Repository) indexOf(id string) int {
	for i, it := range r.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func uploadKey(id string) string {
	return "upload/" + id
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}

func cloneItem(it Item) Item {
	it.Features = append([]string(nil), it.Features...)
	it.Images = append([]ImageRef(nil), it.Images...)
	return it
}

func (f Filter) matches(it Item) bool {
	if f.Brand != "" && !strings.EqualFold(f.Brand, it.Brand) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, it.Category) {
		return false
	}
	if f.Condition != "" && !strings.EqualFold(f.Condition, it.Condition) {
		return false
	}
	if f.MinPrice > 0 && it.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && it.Price > f.MaxPrice {
		return false
	}
	if f.Featured && !it.Featured {
		return false
	}
	return true
}

func sortItems(items []Item, by, order string) {
	if by == "" {
		return
	}
	less := func(a, b Item) bool { return false }
	switch by {
	case "price":
		less = func(a, b Item) bool { return a.Price < b.Price }
	case "year":
		less = func(a, b Item) bool { return a.Year < b.Year }
	case "mileage":
		less = func(a, b Item) bool { return a.Mileage < b.Mileage }
	case "brand":
		less = func(a, b Item) bool { return strings.ToLower(a.Brand) < strings.ToLower(b.Brand) }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if order == "desc" {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
