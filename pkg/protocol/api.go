// Package protocol defines the JSON:API documents returned by the remote
// project and data management endpoints, and maps them onto tree nodes.
package protocol

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"

	"github.com/fruitsalade/hubmirror/pkg/models"
)

// Collection is a document whose data member is an array.
type Collection struct {
	JSONAPI *JSONAPI `json:"jsonapi,omitempty"`
	Links   *Links   `json:"links,omitempty"`
	Data    []Object `json:"data"`
	Meta    *Meta    `json:"meta,omitempty"`
	Errors  []Error  `json:"errors,omitempty"`
}

// Document is a document whose data member is a single object.
type Document struct {
	JSONAPI  *JSONAPI `json:"jsonapi,omitempty"`
	Links    *Links   `json:"links,omitempty"`
	Data     *Object  `json:"data"`
	Included []Object `json:"included,omitempty"`
	Meta     *Meta    `json:"meta,omitempty"`
	Errors   []Error  `json:"errors,omitempty"`
}

// JSONAPI carries the jsonapi.version member.
type JSONAPI struct {
	Version string `json:"version"`
}

// Error is one entry of a JSON:API errors array.
type Error struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// AuthError is the non JSON:API body the gateway returns on auth failures.
type AuthError struct {
	DeveloperMessage string `json:"developerMessage"`
	ErrorCode        string `json:"errorCode"`
	MoreInfo         string `json:"more info"`
}

// Reference is anything that is just an href.
type Reference struct {
	Href string `json:"href"`
}

// Links holds navigation links. Next is set while more pages remain.
type Links struct {
	Self     *Reference `json:"self,omitempty"`
	WebView  *Reference `json:"webView,omitempty"`
	Related  *Reference `json:"related,omitempty"`
	First    *Reference `json:"first,omitempty"`
	Previous *Reference `json:"prev,omitempty"`
	Next     *Reference `json:"next,omitempty"`
}

// NextHref returns the next page link, or "" on the last page.
func (l *Links) NextHref() string {
	if l == nil || l.Next == nil {
		return ""
	}
	return strings.TrimSpace(l.Next.Href)
}

// Meta carries warnings about partially failed listings.
type Meta struct {
	Link     *Reference `json:"link,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// Warning is one entry of meta.warnings.
type Warning struct {
	ID             any    `json:"Id,omitempty"`
	HTTPStatusCode string `json:"HttpStatusCode,omitempty"`
	ErrorCode      string `json:"ErrorCode,omitempty"`
	Title          string `json:"Title,omitempty"`
	Detail         string `json:"Detail,omitempty"`
}

// Object is one resource: a hub, project, folder, item or version.
type Object struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Attributes    *Attributes    `json:"attributes,omitempty"`
	Links         *Links         `json:"links,omitempty"`
	Relationships *Relationships `json:"relationships,omitempty"`
}

// Attributes of a resource. Only the members the tree uses are decoded.
type Attributes struct {
	Name                 string     `json:"name,omitempty"`
	DisplayName          string     `json:"displayName,omitempty"`
	PathInProject        string     `json:"pathInProject,omitempty"`
	Scopes               []string   `json:"scopes,omitempty"`
	Extension            *Extension `json:"extension,omitempty"`
	Region               string     `json:"region,omitempty"`
	CreateTime           time.Time  `json:"createTime,omitempty"`
	CreateUserID         string     `json:"createUserId,omitempty"`
	CreateUserName       string     `json:"createUserName,omitempty"`
	LastModifiedTime     time.Time  `json:"lastModifiedTime,omitempty"`
	LastModifiedUserID   string     `json:"lastModifiedUserId,omitempty"`
	LastModifiedUserName string     `json:"lastModifiedUserName,omitempty"`
	ObjectCount          int        `json:"objectCount,omitempty"`
	Hidden               bool       `json:"hidden,omitempty"`
}

// GetName returns name, falling back to displayName.
func (a *Attributes) GetName() string {
	if a == nil {
		return ""
	}
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.DisplayName
}

// Extension is the product-specific part of the attributes. Data is free-form.
type Extension struct {
	Type    string          `json:"type,omitempty"`
	Version string          `json:"version,omitempty"`
	Schema  *Reference      `json:"schema,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var projectTypePath = jp.MustParseString("$.projectType")

// Platform reads extension.data.projectType.
func (e *Extension) Platform() models.Platform {
	if e == nil || len(e.Data) == 0 {
		return models.PlatformUndetermined
	}
	var data any
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return models.PlatformUndetermined
	}
	for _, v := range projectTypePath.Get(data) {
		if s, ok := v.(string); ok {
			return models.ParsePlatform(s)
		}
	}
	return models.PlatformUndetermined
}

// Relationships of a resource.
type Relationships struct {
	Hub        *Relationship `json:"hub,omitempty"`
	Projects   *Relationship `json:"projects,omitempty"`
	RootFolder *Relationship `json:"rootFolder,omitempty"`
	TopFolders *Relationship `json:"topFolders,omitempty"`
	Parent     *Relationship `json:"parent,omitempty"`
	Contents   *Relationship `json:"contents,omitempty"`
	Tip        *Relationship `json:"tip,omitempty"`
	Versions   *Relationship `json:"versions,omitempty"`
	Storage    *Relationship `json:"storage,omitempty"`
	Item       *Relationship `json:"item,omitempty"`
}

// Relationship links to another resource.
type Relationship struct {
	Links *Links            `json:"links,omitempty"`
	Data  *RelationshipData `json:"data,omitempty"`
	Meta  *Meta             `json:"meta,omitempty"`
}

// RelationshipData identifies the related resource.
type RelationshipData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (r *Relationship) id() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return strings.TrimSpace(r.Data.ID)
}

// Kind maps the type discriminator.
func (o *Object) Kind() models.Kind {
	return models.ParseKind(o.Type)
}

// Name returns the object's name or display name.
func (o *Object) Name() string {
	return o.Attributes.GetName()
}

// RootFolderID returns the project's root folder ID, or "" if absent.
func (o *Object) RootFolderID() string {
	if o.Relationships == nil {
		return ""
	}
	return o.Relationships.RootFolder.id()
}

// TipVersionID returns the ID of an item's latest version, or "".
func (o *Object) TipVersionID() string {
	if o.Relationships == nil {
		return ""
	}
	return o.Relationships.Tip.id()
}

// Platform returns the project platform carried in the attributes extension.
func (o *Object) Platform() models.Platform {
	if o.Attributes == nil {
		return models.PlatformUndetermined
	}
	return o.Attributes.Extension.Platform()
}

// Node converts a folder or item record into a tree node. Any other type
// yields nil and the caller skips it. The node has no parent or path yet.
func (o *Object) Node() *models.Node {
	var n *models.Node
	switch o.Kind() {
	case models.KindFolder:
		n = models.NewFolder(o.ID, o.Name())
	case models.KindFile:
		n = models.NewFile(o.ID, o.Name(), models.ParseVersion(o.TipVersionID()))
	default:
		return nil
	}
	if o.Attributes != nil {
		n.LastModified = o.Attributes.LastModifiedTime
		n.SetLastModifiedBy(o.Attributes.LastModifiedUserName)
	}
	return n
}
