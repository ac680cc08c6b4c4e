// Package sceneio reads scene documents: YAML validated against a JSON
// schema, then loaded into a scene manager.
package sceneio

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"sightline/internal/scene"
)

// ErrInvalidScene is returned for documents that fail to parse, validate
// or load
var ErrInvalidScene = errors.New("invalid scene")

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

var semanticKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// tokenKeyFormat accepts UUIDs and semantic keys
type tokenKeyFormat struct{}

func (tokenKeyFormat) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok || s == "" {
		return false
	}
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	return semanticKey.MatchString(s)
}

func init() {
	gojsonschema.FormatCheckers.Add("token_key", tokenKeyFormat{})
}

// Scene is a loaded document
type Scene struct {
	Name    string
	Manager *scene.Manager
	keys    []string
	ids     map[string]uint64
}

// Keys lists token keys in document order
func (s *Scene) Keys() []string { return s.keys }

// Token returns the current state of the token stored under key
func (s *Scene) Token(key string) (*scene.Token, error) {
	id, ok := s.ids[key]
	if !ok {
		return nil, fmt.Errorf("token %q: %w", key, scene.ErrNotFound)
	}
	return s.Manager.Token(id)
}

// Load reads a scene document from disk. Mask files resolve relative to
// the document.
func Load(path string, log zerolog.Logger) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path), log)
}

// Parse validates and loads a YAML document. dir resolves mask files.
func Parse(data []byte, dir string, log zerolog.Logger) (*Scene, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return Build(&doc, dir, log)
}

// Validate checks a decoded document against the scene schema
func Validate(doc map[string]interface{}) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: validation error: %v", ErrInvalidScene, err)
	}
	if !res.Valid() {
		var problems []string
		for _, desc := range res.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidScene, strings.Join(problems, "; "))
	}
	return nil
}

// Build loads a document into a new scene manager. Tokens without a key
// get a random UUID.
func Build(doc *Document, dir string, log zerolog.Logger) (*Scene, error) {
	m := scene.NewManager(scene.ManagerConfig{
		Bounds:              doc.Bounds.aabb(),
		GridSize:            doc.GridSize,
		BackgroundElevation: doc.BackgroundElevation,
	})
	s := &Scene{Name: doc.Name, Manager: m, ids: make(map[string]uint64)}

	for i, w := range doc.Walls {
		wall, err := buildWall(w)
		if err == nil {
			err = m.AddWall(wall)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: wall %d: %v", ErrInvalidScene, i, err)
		}
	}
	for i, t := range doc.Tiles {
		tile, err := buildTile(t, dir)
		if err == nil {
			err = m.AddTile(tile)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: tile %d: %v", ErrInvalidScene, i, err)
		}
	}
	for i, r := range doc.Regions {
		senses, err := buildSenses(r.Senses)
		if err == nil {
			err = m.AddRegion(&scene.Region{
				Shape:   ring(r.Shape).EnsureCCW(),
				BottomZ: r.Bottom,
				TopZ:    r.Top,
				Senses:  senses,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("%w: region %d: %v", ErrInvalidScene, i, err)
		}
	}
	for i, t := range doc.Tokens {
		key := t.Key
		if key == "" {
			key = uuid.NewString()
		}
		if _, dup := s.ids[key]; dup {
			return nil, fmt.Errorf("%w: token %d: duplicate key %q", ErrInvalidScene, i, key)
		}
		tok, err := buildToken(t)
		if err == nil {
			err = m.AddToken(tok)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: token %q: %v", ErrInvalidScene, key, err)
		}
		s.ids[key] = tok.ID
		s.keys = append(s.keys, key)
	}

	log.Debug().
		Str("scene", doc.Name).
		Int("walls", len(doc.Walls)).
		Int("tiles", len(doc.Tiles)).
		Int("regions", len(doc.Regions)).
		Int("tokens", len(doc.Tokens)).
		Msg("scene loaded")
	return s, nil
}

func buildSenses(in Senses) (scene.Senses, error) {
	var out scene.Senses
	for _, f := range []struct {
		name string
		val  string
		dst  *scene.Restriction
	}{
		{"sight", in.Sight, &out.Sight},
		{"light", in.Light, &out.Light},
		{"sound", in.Sound, &out.Sound},
		{"move", in.Move, &out.Move},
	} {
		r, ok := scene.ParseRestriction(f.val)
		if !ok {
			return out, fmt.Errorf("unknown %s restriction %q", f.name, f.val)
		}
		*f.dst = r
	}
	return out, nil
}

func buildWall(in Wall) (*scene.Wall, error) {
	w := scene.NewWall(in.A.vec(), in.B.vec())
	if in.Bottom != nil {
		w.BottomZ = *in.Bottom
	}
	if in.Top != nil {
		w.TopZ = *in.Top
	}
	w.ProximityDistance = in.Proximity

	switch in.Direction {
	case "", "both":
		w.Direction = scene.DirectionBoth
	case "left":
		w.Direction = scene.DirectionLeft
	case "right":
		w.Direction = scene.DirectionRight
	default:
		return nil, fmt.Errorf("unknown direction %q", in.Direction)
	}

	switch in.Door {
	case "", "none":
		w.Door = scene.DoorNone
	case "closed":
		w.Door = scene.DoorClosed
	case "open":
		w.Door = scene.DoorOpen
	case "locked":
		w.Door = scene.DoorLocked
	default:
		return nil, fmt.Errorf("unknown door state %q", in.Door)
	}

	senses, err := buildSenses(in.Senses)
	if err != nil {
		return nil, err
	}
	w.Senses = senses
	return w, nil
}

func buildTile(in Tile, dir string) (*scene.Tile, error) {
	senses, err := buildSenses(in.Senses)
	if err != nil {
		return nil, err
	}
	t := &scene.Tile{
		Rect:           in.Rect.aabb(),
		Elevation:      in.Elevation,
		AlphaThreshold: in.AlphaThreshold,
		Senses:         senses,
	}
	switch {
	case len(in.Mask) > 0:
		t.Mask, err = maskFromRows(in.Mask)
	case in.MaskFile != "":
		t.Mask, err = maskFromFile(filepath.Join(dir, in.MaskFile))
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func maskFromRows(rows []string) (image.Image, error) {
	w := len(rows[0])
	img := image.NewAlpha(image.Rect(0, 0, w, len(rows)))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("mask row %d has %d texels, want %d", y, len(row), w)
		}
		for x := 0; x < w; x++ {
			if row[x] == '#' {
				img.Pix[y*img.Stride+x] = 0xff
			}
		}
	}
	return img, nil
}

func maskFromFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mask: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding mask %s: %w", path, err)
	}
	return img, nil
}

func buildToken(in Token) (*scene.Token, error) {
	var t *scene.Token
	switch {
	case len(in.Footprint) > 0:
		t = &scene.Token{Footprint: ring(in.Footprint).EnsureCCW(), BottomZ: in.Bottom, TopZ: in.Top}
	case in.Center != nil && in.Size > 0:
		t = scene.NewSquareToken(in.Center.vec(), in.Size, in.Bottom, in.Top)
	default:
		return nil, errors.New("token needs a footprint or a center and size")
	}
	t.Name = in.Name
	t.Facing = radians(in.Facing)
	t.ConeOfVision = radians(in.Cone)
	t.Dead = in.Dead
	t.Prone = in.Prone
	return t, nil
}
