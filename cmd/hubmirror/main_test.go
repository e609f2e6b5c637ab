package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/hubmirror/internal/builder"
	"github.com/fruitsalade/hubmirror/pkg/models"
	"github.com/fruitsalade/hubmirror/pkg/protocol"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

const (
	accountID = "1a2b3c4d-0000-1111-2222-333344445555"
	projectID = "9f8e7d6c-0000-1111-2222-333344445555"
)

func sample(t *testing.T) *tree.Project {
	t.Helper()
	p := tree.NewProject(remoteid.NewPair(accountID, projectID))
	p.Name = "Tower"
	p.Root = models.NewFolder("root", projectID+"-root-folder")

	add := func(parent, child *models.Node) *models.Node {
		require.NoError(t, parent.AddChild(child))
		child.PathSegments = parent.ChildPath()
		return child
	}
	drawings := add(p.Root, models.NewFolder("d", "Drawings"))
	plan := add(drawings, models.NewFile("f1", "plan.dwg", 4))
	plan.LastModified = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	plan.SetLastModifiedBy("Grace")
	add(p.Root, models.NewFolder("s1", "issue_attachments"))
	add(p.Root, models.NewFolder("s2", "Photos "+projectID))
	add(p.Root, models.NewFile("f2", "spec.pdf", 1))
	return p
}

func TestProjectFlagsValidate(t *testing.T) {
	f := projectFlags{account: "b." + accountID, project: projectID}
	ids, err := f.ids()
	require.NoError(t, err)
	assert.Equal(t, accountID, ids.Account.String())

	f.project = "not-a-guid"
	_, err = f.ids()
	assert.Error(t, err)

	f = projectFlags{account: "", project: projectID}
	_, err = f.ids()
	assert.Error(t, err)
}

func TestWriteFiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFiles(&buf, sample(t).Root))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "f1\tDrawings/plan.dwg\t4\t2024-01-02T03:04:05Z\tGrace", lines[1])
	assert.Equal(t, "f2\tspec.pdf\t1\t\t", lines[2])
}

func TestPruneSpecial(t *testing.T) {
	p := sample(t)
	pruneSpecial(p)

	assert.Nil(t, tree.FindByID(p.Root, "s1"))
	assert.Nil(t, tree.FindByID(p.Root, "s2"))
	assert.NotNil(t, tree.FindByID(p.Root, "d"))
	assert.Equal(t, "root", p.Root.ID)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	failures := []builder.BranchFailure{{FolderID: "x", Path: []string{"Drawings"}, Err: errors.New("boom")}}
	printSummary(&buf, sample(t), failures, 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "Project:   Tower (undetermined)")
	assert.Contains(t, out, "Folders:   4")
	assert.Contains(t, out, "Files:     2")
	assert.Contains(t, out, "Incomplete: 1 folder(s)")
	assert.Contains(t, out, "boom")
}

func TestWriteObjects(t *testing.T) {
	var buf bytes.Buffer
	objs := []protocol.Object{{
		Type:       "hubs",
		ID:         "b." + accountID,
		Attributes: &protocol.Attributes{Name: "Acme", Region: "EMEA"},
	}}
	writeObjects(&buf, objs, func(o protocol.Object) string { return o.Attributes.Region })
	assert.Equal(t, accountID+"\tAcme\tEMEA\n", buf.String())
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	describe(&buf, tree.FindByID(sample(t).Root, "f1"))
	out := buf.String()
	assert.Contains(t, out, "Type:    items")
	assert.Contains(t, out, "Path:    Drawings")
	assert.Contains(t, out, "Version: 4")
	assert.Contains(t, out, "Grace")
}
