package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seedscout/harvester/internal/browser"
)

const profileFixture = `<!doctype html>
<html><body>
	<h1>Acme Robotics</h1>
	<a href="/companies?batch=W24">W24</a>
	<p class="whitespace-pre-line">Robots for warehouses.</p>
	<div class="font-bold">Jane Doe</div>
	<div class="font-bold">Founders</div>
	<div class="font-bold">A Very Long Name Here</div>
	<h3>John Smith</h3>
	<h3>Jane Doe</h3>
	<a href="https://linkedin.com/in/jane-doe?miniProfile=x">Jane</a>
	<a href="https://linkedin.com/in/john-smith/">John</a>
	<a href="https://linkedin.com/in/jane-doe/">Jane again</a>
</body></html>`

func newProfileSessionFromHTML(t *testing.T, html string) browser.Session {
	t.Helper()
	s, err := browser.NewStaticSession(html)
	require.NoError(t, err)
	return s
}

func TestExtract_FullProfile(t *testing.T) {
	s := newProfileSessionFromHTML(t, profileFixture)

	record, err := Extract(context.Background(), s)
	require.NoError(t, err)

	require.Equal(t, "Acme Robotics", record.Name)
	require.Equal(t, "W24", record.Batch)
	require.Equal(t, "Robots for warehouses.", record.Description)
	require.Equal(t, []string{"Jane Doe", "John Smith"}, record.FounderNames)
	require.Equal(t, []string{
		"https://linkedin.com/in/jane-doe",
		"https://linkedin.com/in/john-smith",
	}, record.FounderLinks)
	require.False(t, record.Failed)
}

func TestExtract_MissingNameFails(t *testing.T) {
	s := newProfileSessionFromHTML(t, `<html><body><p>no heading here</p></body></html>`)

	_, err := Extract(context.Background(), s)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNameMissing))
}

func TestExtract_SentinelsForMissingFields(t *testing.T) {
	s := newProfileSessionFromHTML(t, `<html><body><h1>Bare Co</h1></body></html>`)

	record, err := Extract(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "Bare Co", record.Name)
	require.Equal(t, NotAvailable, record.Batch)
	require.Equal(t, NotAvailable, record.Description)
	require.Empty(t, record.FounderNames)
	require.Empty(t, record.FounderLinks)
}

func TestExtract_HiddenNodesIgnored(t *testing.T) {
	s := newProfileSessionFromHTML(t, `<html><body>
		<h1>Shy Co</h1>
		<a href="/companies?batch=S19" style="display:none">S19</a>
		<div hidden><p class="whitespace-pre-line">invisible pitch</p></div>
	</body></html>`)

	record, err := Extract(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, NotAvailable, record.Batch, "hidden batch link must not be read")
	require.Equal(t, NotAvailable, record.Description, "hidden description must not be read")
}

func TestExtract_SecondDescriptionSelector(t *testing.T) {
	s := newProfileSessionFromHTML(t, `<html><body>
		<h1>Alt Co</h1>
		<div class="text-xl">Short pitch.</div>
	</body></html>`)

	record, err := Extract(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "Short pitch.", record.Description)
}

func TestAcceptFounderName(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"Jane Doe", true},
		{"Jane", true},
		{"Jane Q Doe", true},
		{"A B C D", false},
		{"", false},
		{"Founders", false},
		{"Open Jobs", false},
		{"Launch", false},
	}
	for _, tc := range tests {
		t.Run(tc.candidate, func(t *testing.T) {
			require.Equal(t, tc.want, AcceptFounderName(tc.candidate))
		})
	}
}
