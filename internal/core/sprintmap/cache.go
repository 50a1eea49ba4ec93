package sprintmap

// LoadFunc fetches sprint boundaries from the backing store
// ok=false means the sprint is unknown
type LoadFunc func(sprintID string) (Sprint, bool, error)

// Cache memoizes sprint lookups for the duration of one ingestion batch.
// It is not safe for concurrent use; construct a fresh one per batch.
//
// A failed load is reported through OnLoadError and then treated as a miss,
// so a flaky lookup degrades to "sprint unknown" instead of failing the
// whole batch. Misses are cached too, one store round-trip per sprint id.
type Cache struct {
	load LoadFunc
	hit  map[string]Sprint
	miss map[string]struct{}

	// OnLoadError is invoked once per failed load; may be nil
	OnLoadError func(sprintID string, err error)
}

// NewCache builds a batch-scoped cache over load
func NewCache(load LoadFunc) *Cache {
	return &Cache{
		load: load,
		hit:  map[string]Sprint{},
		miss: map[string]struct{}{},
	}
}

// Get resolves sprint boundaries, loading on first miss
func (c *Cache) Get(sprintID string) (Sprint, bool) {
	if s, ok := c.hit[sprintID]; ok {
		return s, true
	}
	if _, ok := c.miss[sprintID]; ok {
		return Sprint{}, false
	}

	s, ok, err := c.load(sprintID)
	if err != nil {
		if c.OnLoadError != nil {
			c.OnLoadError(sprintID, err)
		}
		c.miss[sprintID] = struct{}{}
		return Sprint{}, false
	}
	if !ok {
		c.miss[sprintID] = struct{}{}
		return Sprint{}, false
	}
	c.hit[sprintID] = s
	return s, true
}
