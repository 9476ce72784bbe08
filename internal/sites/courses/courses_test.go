package courses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-crawler/internal/crawler"
	"edu-crawler/pkg/models"
)

func parse(t *testing.T, raw, url string) *crawler.Document {
	t.Helper()
	doc, err := crawler.NewParser().ParseString(raw, url)
	require.NoError(t, err)
	return doc
}

func TestParseListing(t *testing.T) {
	doc := parse(t, `<html><body>
<div class="course_list">
  <h2><a href="/courses/btech/">B.Tech</a></h2>
  <ul><li>Average Duration <span>4 Years</span></li><li>Average Fees <span> 1-4 Lakh </span></li></ul>
</div>
<div class="course_list"><h2><a href="/courses/btech/">B.Tech</a></h2></div>
<div class="course_list"><h2><a href="/courses/mba/">MBA</a></h2><ul><li>Average Fees <span>8 Lakh</span></li></ul></div>
</body></html>`, "https://www.collegedekho.com/courses/")

	page := New().ParseListing(doc)
	require.Len(t, page.Entities, 2)
	assert.Empty(t, page.Next)

	btech := page.Entities[0]
	assert.Equal(t, models.EntityKey("B.Tech"), btech.Key)
	assert.Equal(t, "https://www.collegedekho.com/courses/btech/", btech.DetailURL)

	record := models.NewRecord(btech.Key)
	record.Fold(btech.Fields)
	assert.Equal(t, []string{"title", "average_duration", "average_fees"}, record.Names())
	assert.Equal(t, "4 Years", record.Text("average_duration"))
	assert.Equal(t, "1-4 Lakh", record.Text("average_fees"))

	mba := models.NewRecord("MBA")
	mba.Fold(page.Entities[1].Fields)
	v, _ := mba.Get("average_duration")
	assert.Nil(t, v.(*string))
}

func TestParseDetail(t *testing.T) {
	doc := parse(t, `<html><body>
<div class="snippet_caption__5YxeJ"><p>Bachelor of Technology.</p></div>
<div class="block"><h2>Eligibility</h2><span class="collegeDetail_overview__Qr159"><p>10+2 <a href="/pcm">PCM</a></p></span></div>
<div class="block"><h2>Eligibility</h2><span class="collegeDetail_overview__Qr159"><p>again</p></span></div>
<div class="block"><h2>No body</h2></div>
</body></html>`, "https://www.collegedekho.com/courses/btech/")

	page := New().ParseDetail(doc)
	assert.Empty(t, page.Tabs)

	description, _ := page.Fields.Get("description")
	assert.Equal(t, "Bachelor of Technology.", *description.(*string))

	sectionsValue, _ := page.Fields.Get("sections")
	assert.Equal(t, models.Sections{{
		Title:   "Eligibility",
		Content: `<span class="collegeDetail_overview__Qr159"><p>10+2 </p></span>`,
	}}, sectionsValue)
}
