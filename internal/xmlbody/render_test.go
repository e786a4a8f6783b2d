package xmlbody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmpty(t *testing.T) {
	out, err := New().Render("purge_agent", nil)
	require.NoError(t, err)
	assert.Equal(t, "<ServiceRequest></ServiceRequest>", string(out))
}

func TestRenderCriteria(t *testing.T) {
	out, err := New().Render("get_findings", map[string]string{
		"severity":          "4",
		"severity_operator": "GREATER",
		"webApp_tags_name":  "prod & dmz",
		"id":                "1200",
		"id_operator":       "GREATER",
		"verbose":           "true",
		"limitResults":      "50",
	})
	require.NoError(t, err)

	want := `<ServiceRequest><filters>` +
		`<Criteria field="id" operator="GREATER">1200</Criteria>` +
		`<Criteria field="severity" operator="GREATER">4</Criteria>` +
		`<Criteria field="webApp.tags.name" operator="EQUALS">prod &amp; dmz</Criteria>` +
		`</filters><preferences><limitResults>50</limitResults><verbose>true</verbose></preferences>` +
		`</ServiceRequest>`
	assert.Equal(t, want, string(out))
}

func TestRenderCountDropsPreferences(t *testing.T) {
	out, err := New().Render("count_findings", map[string]string{
		"status":       "NEW",
		"limitResults": "50",
	})
	require.NoError(t, err)
	assert.Equal(t, `<ServiceRequest><filters><Criteria field="status" operator="EQUALS">NEW</Criteria></filters></ServiceRequest>`, string(out))
}

func TestRenderDeterministic(t *testing.T) {
	params := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4", "e": "5"}
	first, err := New().Render("get_webapps", params)
	require.NoError(t, err)
	for range 20 {
		again, err := New().Render("get_webapps", params)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestRenderOrphanOperator(t *testing.T) {
	_, err := New().Render("get_findings", map[string]string{"severity_operator": "GREATER"})
	assert.Error(t, err)
}
