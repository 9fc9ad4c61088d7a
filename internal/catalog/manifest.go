package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/catalog.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// Format is the encoding of a manifest document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// manifestDocument is the wire shape of a manifest and of the backup file.
type manifestDocument struct {
	Packages  []manifestPackage `json:"packages"`
	FetchedAt *time.Time        `json:"fetched_at,omitempty"`
}

type manifestPackage struct {
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Description string            `json:"description,omitempty"`
	Variants    []manifestVariant `json:"variants"`
}

type manifestVariant struct {
	Version   string            `json:"version"`
	Artifacts manifestArtifacts `json:"artifacts"`
}

type manifestArtifacts struct {
	Primary  string `json:"primary,omitempty"`
	Launcher string `json:"launcher,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// ManifestSource reads a structured manifest document.
type ManifestSource struct {
	url        string
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// NewManifestSource creates a manifest source for manifestURL.
func NewManifestSource(manifestURL string, opts ...Option) (*ManifestSource, error) {
	u, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest URL %q: %w", manifestURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("manifest URL %q must be absolute", manifestURL)
	}
	o := buildOptions(opts)
	return &ManifestSource{
		url:        manifestURL,
		httpClient: o.httpClient,
		logger:     o.logger.WithPrefix("manifest"),
		now:        o.now,
	}, nil
}

// Fetch downloads and decodes the manifest. An undecodable document fails
// with ErrMalformed; malformed package entries are skipped.
func (m *ManifestSource) Fetch(ctx context.Context) (*Snapshot, error) {
	body, contentType, err := getDocument(ctx, m.httpClient, m.url)
	if err != nil {
		return nil, err
	}
	pkgs, _, err := DecodeManifest(body, DetectFormat(m.url, contentType), m.logger)
	if err != nil {
		return nil, malformed(m.url, err)
	}
	return NewSnapshot(pkgs, m.now(), OriginLive), nil
}

// DetectFormat picks the manifest encoding from a Content-Type header, then
// from the extension of a URL or file path. JSON is the default.
func DetectFormat(rawURL, contentType string) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if strings.Contains(mediaType, "yaml") {
			return FormatYAML
		}
		if strings.Contains(mediaType, "json") {
			return FormatJSON
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".yaml", ".yml":
			return FormatYAML
		}
	}
	return FormatJSON
}

// DecodeManifest decodes a manifest document into packages. The document
// must decode and satisfy the catalog schema as a whole; individual package
// entries and variants that are malformed are logged and skipped. The
// document's fetched_at stamp is returned when present.
func DecodeManifest(data []byte, format Format, logger *log.Logger) ([]Package, time.Time, error) {
	raw, err := decodeGeneric(data, format)
	if err != nil {
		return nil, time.Time{}, err
	}
	if err := validateDocument(raw); err != nil {
		return nil, time.Time{}, err
	}

	doc := raw.(map[string]any)
	var fetchedAt time.Time
	if s, ok := doc["fetched_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			fetchedAt = t
		}
	}

	entries, _ := doc["packages"].([]any)
	pkgs := make([]Package, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		p, err := decodePackage(entry, logger)
		if err != nil {
			logger.Warn("skipping package entry", "index", i, "err", err)
			continue
		}
		if seen[p.Name] {
			logger.Warn("skipping duplicate package", "index", i, "package", p.Name)
			continue
		}
		seen[p.Name] = true
		pkgs = append(pkgs, p)
	}
	return pkgs, fetchedAt, nil
}

// decodeGeneric turns the document into JSON-compatible values that the
// schema validator accepts.
func decodeGeneric(data []byte, format Format) (any, error) {
	if format == FormatYAML {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("converting YAML to JSON: %w", err)
		}
		data = jsonData
	}
	raw, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return raw, nil
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("catalog.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("catalog.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

func validateDocument(raw any) error {
	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	err = schema.Validate(raw)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validating document: %w", err)
	}
	return fmt.Errorf("document does not match catalog schema: %s", strings.Join(schemaIssues(ve), "; "))
}

// schemaIssues flattens the leaf causes of a validation error.
func schemaIssues(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		msg := ve.Error()
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		return []string{loc + ": " + msg}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, schemaIssues(cause)...)
	}
	return out
}

func decodePackage(entry any, logger *log.Logger) (Package, error) {
	if _, ok := entry.(map[string]any); !ok {
		return Package{}, fmt.Errorf("package entry is %T, want object", entry)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return Package{}, err
	}
	var mp manifestPackage
	if err := json.Unmarshal(data, &mp); err != nil {
		return Package{}, fmt.Errorf("decoding package: %w", err)
	}
	mp.Name = strings.TrimSpace(mp.Name)
	if mp.Name == "" {
		return Package{}, errors.New("package has no name")
	}
	kind, err := ParseKind(mp.Kind)
	if err != nil {
		return Package{}, fmt.Errorf("package %q: %w", mp.Name, err)
	}

	p := Package{Name: mp.Name, Kind: kind, Description: mp.Description}
	seen := make(map[string]bool, len(mp.Variants))
	for _, mv := range mp.Variants {
		version := strings.TrimSpace(mv.Version)
		if version == "" {
			logger.Warn("skipping variant without version", "package", mp.Name)
			continue
		}
		if seen[version] {
			logger.Warn("skipping duplicate variant", "package", mp.Name, "version", version)
			continue
		}
		seen[version] = true
		p.Variants = append(p.Variants, Variant{
			Version: version,
			Artifacts: Artifacts{
				Primary:  mv.Artifacts.Primary,
				Launcher: mv.Artifacts.Launcher,
				Icon:     mv.Artifacts.Icon,
			},
		})
	}
	return p, nil
}

// EncodeManifest renders a snapshot as a JSON manifest document.
func EncodeManifest(s *Snapshot) ([]byte, error) {
	fetchedAt := s.FetchedAt().UTC()
	doc := manifestDocument{
		Packages:  make([]manifestPackage, 0, s.Len()),
		FetchedAt: &fetchedAt,
	}
	for _, p := range s.packages {
		mp := manifestPackage{
			Name:        p.Name,
			Kind:        p.Kind.String(),
			Description: p.Description,
			Variants:    make([]manifestVariant, 0, len(p.Variants)),
		}
		for _, v := range p.Variants {
			mp.Variants = append(mp.Variants, manifestVariant{
				Version: v.Version,
				Artifacts: manifestArtifacts{
					Primary:  v.Artifacts.Primary,
					Launcher: v.Artifacts.Launcher,
					Icon:     v.Artifacts.Icon,
				},
			})
		}
		doc.Packages = append(doc.Packages, mp)
	}
	return json.MarshalIndent(doc, "", "  ")
}
