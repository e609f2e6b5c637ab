package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/hubmirror/pkg/models"
)

const projectDoc = `{
  "jsonapi": {"version": "1.0"},
  "data": {
    "type": "projects",
    "id": "b.9f8e7d6c-0000-1111-2222-333344445555",
    "attributes": {
      "name": "Tower",
      "extension": {"type": "projects:autodesk.bim360:Project", "data": {"projectType": "ACC"}}
    },
    "relationships": {
      "rootFolder": {"data": {"type": "folders", "id": "urn:adsk.wipprod:fs.folder:co.root"}}
    }
  }
}`

const contentsDoc = `{
  "data": [
    {
      "type": "folders",
      "id": "urn:adsk.wipprod:fs.folder:co.drawings",
      "attributes": {"name": "Drawings", "lastModifiedTime": "2024-03-01T10:00:00.000Z", "lastModifiedUserName": " Pat "}
    },
    {
      "type": "items",
      "id": "urn:adsk.wipprod:dm.lineage:spec",
      "attributes": {"displayName": "spec.pdf"},
      "relationships": {"tip": {"data": {"type": "versions", "id": "urn:adsk.wipprod:fs.file:vf.spec?version=4"}}}
    },
    {"type": "versions", "id": "urn:adsk.wipprod:fs.file:vf.other?version=1"}
  ],
  "links": {"next": {"href": "https://example.test/next"}}
}`

func TestProjectDocument(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(projectDoc), &doc))
	require.NotNil(t, doc.Data)

	assert.Equal(t, "Tower", doc.Data.Name())
	assert.Equal(t, models.PlatformACC, doc.Data.Platform())
	assert.Equal(t, "urn:adsk.wipprod:fs.folder:co.root", doc.Data.RootFolderID())
	assert.Nil(t, doc.Data.Node(), "projects are not tree nodes")
}

func TestCollectionNodes(t *testing.T) {
	var col Collection
	require.NoError(t, json.Unmarshal([]byte(contentsDoc), &col))
	require.Len(t, col.Data, 3)
	assert.Equal(t, "https://example.test/next", col.Links.NextHref())

	folder := col.Data[0].Node()
	require.NotNil(t, folder)
	assert.True(t, folder.IsFolder())
	assert.Equal(t, "Drawings", folder.Name)
	assert.Equal(t, "Pat", folder.LastModifiedBy)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), folder.LastModified.UTC())

	file := col.Data[1].Node()
	require.NotNil(t, file)
	assert.True(t, file.IsFile())
	assert.Equal(t, "spec.pdf", file.Name)
	assert.Equal(t, 4, file.Version)

	assert.Nil(t, col.Data[2].Node())
}

func TestPlatformMissing(t *testing.T) {
	var ext *Extension
	assert.Equal(t, models.PlatformUndetermined, ext.Platform())

	ext = &Extension{Data: json.RawMessage(`{"other": 1}`)}
	assert.Equal(t, models.PlatformUndetermined, ext.Platform())

	ext = &Extension{Data: json.RawMessage(`[1,2`)}
	assert.Equal(t, models.PlatformUndetermined, ext.Platform())

	var links *Links
	assert.Empty(t, links.NextHref())
}
