package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "versailles-assistant/internal/common/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agendaPage = `<html><body>
<div class="view-content">
  <div class="outer">
    <h4 class="title"><a href="/chateau">Le Château</a></h4>
    <div class="info">
      <span class="hours">9h00 - 18h30</span>
      <span class="affluence" title="Forte affluence attendue">Affluence</span>
    </div>
  </div>
  <div class="outer">
    <h4 class="title"><a href="/trianon">Le Domaine de Trianon</a></h4>
    <div class="info"><span class="hours">12h00 - 18h30</span></div>
  </div>
  <div class="outer">
    <h4 class="title"><a href="/jardins">Les Jardins</a></h4>
  </div>
  <div class="outer"><p>advert without a title</p></div>
</div>
</body></html>`

const closedPage = `<html><body>
<div class="view-content"></div>
<div class="view-empty">  Le château est fermé le lundi.  </div>
</body></html>`

func TestParse(t *testing.T) {
	day, err := Parse([]byte(agendaPage))
	require.NoError(t, err)
	require.Len(t, day.Venues, 3)

	assert.Equal(t, Venue{Name: "Le Château", Hours: "9h00 - 18h30", Details: "Forte affluence attendue"}, day.Venues[0])
	assert.Equal(t, Venue{Name: "Le Domaine de Trianon", Hours: "12h00 - 18h30", Details: notSpecified}, day.Venues[1])
	assert.Equal(t, Venue{Name: "Les Jardins", Hours: notSpecified, Details: notSpecified}, day.Venues[2])
	assert.Empty(t, day.Status)
}

func TestParse_ClosedAndMissingContainer(t *testing.T) {
	day, err := Parse([]byte(closedPage))
	require.NoError(t, err)
	assert.Empty(t, day.Venues)
	assert.Equal(t, "Le château est fermé le lundi.", day.Status)

	day, err = Parse([]byte(`<div class="view-content"></div>`))
	require.NoError(t, err)
	assert.Equal(t, "No schedule information found for this date.", day.Status)

	_, err = Parse([]byte(`<html><body><p>maintenance</p></body></html>`))
	assert.True(t, errors.Is(err, ErrPageStructure))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/actualites/agenda-chateau-versailles/fr-2025-06-01", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		_, _ = w.Write([]byte(agendaPage))
	}))
	defer srv.Close()

	scraper := NewScraper(srv.URL+"/", "", httpclient.NewClient(5*time.Second))
	day, err := scraper.Fetch(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", day.Date)
	assert.Contains(t, day.String(), "- Le Château: 9h00 - 18h30 (Forte affluence attendue)")
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scraper := NewScraper(srv.URL, "test-agent", httpclient.NewClient(5*time.Second))

	_, err := scraper.Fetch(context.Background(), "01/06/2025")
	assert.True(t, errors.Is(err, ErrInvalidDate))

	_, err = scraper.Fetch(context.Background(), "2025-06-01")
	assert.True(t, errors.Is(err, ErrFetchFailed))
}
