package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetCSV = "Main ID,Reported Date,Total Dead and Missing,Location Coordinates\n" +
	"1,\"Wed, 11/04/2020\",3,\"35.5, 14.2\"\n" +
	"2,\"Tue, 11/03/2020\",1,\"32.7, -117.1\"\n"

func testClient(datasetURL, topologyURL string) *Client {
	return NewClient(datasetURL, topologyURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchDataset_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dataset.csv", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, datasetCSV)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL+"/dataset.csv", "").FetchDataset(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "35.5, 14.2", rows[0].Fields[domain.ColumnCoordinates])
	assert.Equal(t, "Wed, 11/04/2020", rows[0].Fields[domain.ColumnReportedDate])
	assert.Equal(t, "1", rows[1].Fields[domain.ColumnSeverity])

	inc, err := domain.ParseRow(rows[0])
	require.NoError(t, err)
	assert.Equal(t, 3, inc.Severity)
}

func TestClient_FetchDataset_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "").FetchDataset(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_FetchTopology_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Topology"}`), 0o600))

	for _, location := range []string{path, "file://" + path} {
		data, err := testClient("", location).FetchTopology(context.Background())
		require.NoError(t, err, location)
		assert.JSONEq(t, `{"type":"Topology"}`, string(data))
	}
}

func TestClient_FetchTopology_MissingFile(t *testing.T) {
	_, err := testClient("", filepath.Join(t.TempDir(), "nope.json")).FetchTopology(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient("", srv.URL).FetchTopology(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV_BOMAndShortRows(t *testing.T) {
	doc := "\ufeffReported Date,Total Dead and Missing\n2020-01-05,3\n2020-01-06\n"

	rows, err := ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "2020-01-05", rows[0].Fields[domain.ColumnReportedDate])
	assert.Equal(t, "", rows[1].Fields[domain.ColumnSeverity])
	assert.Equal(t, 3, rows[1].Line)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestReadCSV_Malformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	require.Error(t, err)
}
