package benchmarks

import (
	"os"

	"github.com/zoobzio/gram"
)

func writeAttribute(store *gram.Store, id, value string) error {
	return os.WriteFile(store.Path(id), []byte(value+"\n"), 0o644) //nolint:gosec // test fixture
}
