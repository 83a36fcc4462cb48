package sqlstore_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/storage"
	"github.com/papercomputeco/reel/pkg/storage/sqlstore"
)

var _ = Describe("New", func() {
	var (
		ctx    context.Context
		dbPath string
	)

	open := func() *sql.DB {
		db, err := sql.Open("sqlite3", dbPath+"?_fk=1")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
		return db
	}

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "store.sqlite")
	})

	It("creates the transcripts table with its indexes", func() {
		db := open()
		d, err := sqlstore.New(ctx, dialect.SQLite, db)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		var name string
		Expect(db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, sqlstore.Table).Scan(&name)).To(Succeed())
		Expect(name).To(Equal("transcripts"))

		var indexes int
		Expect(db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name LIKE 'transcript_%'`, sqlstore.Table).Scan(&indexes)).To(Succeed())
		Expect(indexes).To(Equal(2))
	})

	It("migrates an existing database without losing rows", func() {
		d, err := sqlstore.New(ctx, dialect.SQLite, open())
		Expect(err).NotTo(HaveOccurred())
		inserted, err := d.Put(ctx, &eventstream.Transcript{
			EventID:   "evt-1",
			SessionID: "sess",
			EmittedAt: time.Unix(1700000000, 0).UTC(),
			Text:      "kept",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeTrue())
		Expect(d.Close()).To(Succeed())

		d, err = sqlstore.New(ctx, dialect.SQLite, open())
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		got, err := d.Get(ctx, "evt-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Text).To(Equal("kept"))
		Expect(got.EmittedAt.Equal(time.Unix(1700000000, 0))).To(BeTrue())
	})

	It("lists and counts through the SQL builder", func() {
		d, err := sqlstore.New(ctx, dialect.SQLite, open())
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		for i, id := range []string{"a", "b", "c"} {
			_, err := d.Put(ctx, &eventstream.Transcript{
				EventID:   id,
				SessionID: "sess",
				Source:    eventstream.TranscriptSource{Provider: "openai"},
				EmittedAt: time.Unix(int64(1700000000+i), 0),
			})
			Expect(err).NotTo(HaveOccurred())
		}

		n, err := d.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))

		ts, err := d.List(ctx, storage.ListOptions{Provider: "openai", Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(HaveLen(2))
		Expect(ts[0].EventID).To(Equal("c"))
		Expect(ts[1].EventID).To(Equal("b"))
	})
})
