package journal

// Journal defines the journal operations used by the service layer.
// Consumers should depend on this interface rather than the concrete *DB.
type Journal interface {
	RecordGuide(g GuideRow) error
	GetGuide(id string) (*GuideRow, error)
	ListGuides(limit, offset int) ([]GuideRow, int, error)
	Search(query string, limit int) ([]GuideRow, error)
	HasTopic(checksum string) (bool, error)
	RecordSeedRun(r SeedRunRow) (int64, error)
	ListSeedRuns(limit int) ([]SeedRunRow, error)
	Close() error
}

// Verify *DB satisfies Journal at compile time.
var _ Journal = (*DB)(nil)
