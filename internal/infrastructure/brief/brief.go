// Package brief は、YAMLで書かれた撮影ブリーフを読み込み、スタジオへのコマンド列に変換します
package brief

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// 同時に読み込む画像ファイル数の上限
const loadConcurrency = 8

// Brief は、1回の撮影の設定をまとめたものです
type Brief struct {
	Title       string         `yaml:"title"`
	Location    string         `yaml:"location"`
	Vibe        string         `yaml:"vibe"`
	GlobalBrief string         `yaml:"brief"`
	Negative    string         `yaml:"negative"`
	UseModel    bool           `yaml:"use_model"`
	AspectRatio string         `yaml:"aspect_ratio"`
	Resolution  string         `yaml:"resolution"`
	Quality     map[string]int `yaml:"quality"`
	Lens        string         `yaml:"lens"`
	Camera      string         `yaml:"camera"`
	Lighting    string         `yaml:"lighting"`
	Consistency Consistency    `yaml:"consistency"`
	Images      Images         `yaml:"images"`
	Shots       []Shot         `yaml:"shots"`

	// baseDir は画像パスの基準ディレクトリです
	baseDir string
}

// Consistency は、一貫性フラグです。省略した項目は有効になります
type Consistency struct {
	Background     *bool `yaml:"background"`
	Model          *bool `yaml:"model"`
	ProductDetails *bool `yaml:"product_details"`
}

// Images は、コレクションごとの画像ファイルのパスです
type Images struct {
	Product   []string `yaml:"product"`
	Detail    []string `yaml:"detail"`
	Reference []string `yaml:"reference"`
	Model     []string `yaml:"model"`
}

// Shot は、1ショット分の指定です
type Shot struct {
	Pose     string `yaml:"pose"`
	Type     string `yaml:"type"`
	Angle    string `yaml:"angle"`
	Area     string `yaml:"area"`
	Override string `yaml:"override"`
}

// Load は、ファイルからブリーフを読み込みます
// 画像のパスはブリーフファイルのディレクトリからの相対パスとして解釈されます
func Load(path string) (*Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ブリーフの読み込みに失敗: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, err
	}
	b.baseDir = filepath.Dir(path)
	return b, nil
}

// Parse は、YAMLからブリーフを読み取ります
func Parse(data []byte) (*Brief, error) {
	var b Brief
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("ブリーフの解析に失敗: %w", err)
	}
	return &b, nil
}

// Commands は、ブリーフをスタジオへのコマンド列に変換します
// hasCredentialは標準より高い解像度の指定を許可するかどうかです
func (b *Brief) Commands(ctx context.Context, hasCredential bool) ([]application.Command, error) {
	images, err := b.loadImages(ctx)
	if err != nil {
		return nil, err
	}

	cmds := make([]application.Command, 0, len(images)+len(b.Shots)+16)
	cmds = append(cmds, images...)
	cmds = append(cmds,
		application.SetSceneField{Field: application.SceneTitle, Value: b.Title},
		application.SetSceneField{Field: application.SceneLocation, Value: b.Location},
		application.SetSceneField{Field: application.SceneVibe, Value: b.Vibe},
		application.SetSceneField{Field: application.SceneBrief, Value: b.GlobalBrief},
		application.SetSceneField{Field: application.SceneNegative, Value: b.Negative},
		application.SetUseModel{UseModel: b.UseModel},
		application.SetConsistency{Flags: b.Consistency.flags()},
	)

	levels := make(map[domain.QualityField]int, len(b.Quality))
	for key, v := range b.Quality {
		f, err := domain.ParseQualityField(key)
		if err != nil {
			return nil, err
		}
		levels[f] = v
	}
	for _, f := range domain.AllQualityFields() {
		if v, ok := levels[f]; ok {
			cmds = append(cmds, application.SetQualityLevel{Field: f, Value: v})
		}
	}

	for _, h := range []application.SetHardware{
		{Field: application.HardwareLens, Value: b.Lens},
		{Field: application.HardwareCameraBody, Value: b.Camera},
		{Field: application.HardwareLighting, Value: b.Lighting},
	} {
		if h.Value != "" {
			cmds = append(cmds, h)
		}
	}

	if b.AspectRatio != "" {
		ratio, err := domain.ParseAspectRatio(b.AspectRatio)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, application.SetAspectRatio{Ratio: ratio})
	}
	if b.Resolution != "" {
		r, err := domain.ParseResolution(b.Resolution)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, application.SetResolution{Resolution: r, HasCredential: hasCredential})
	}

	for i, s := range b.Shots {
		shot, err := s.toShotSpec()
		if err != nil {
			return nil, fmt.Errorf("ショット %d: %w", i+1, err)
		}
		cmds = append(cmds, application.AddShot{Shot: shot})
	}
	return cmds, nil
}

func (c Consistency) flags() domain.ConsistencyFlags {
	flags := domain.DefaultConsistencyFlags()
	if c.Background != nil {
		flags.Background = *c.Background
	}
	if c.Model != nil {
		flags.Model = *c.Model
	}
	if c.ProductDetails != nil {
		flags.ProductDetails = *c.ProductDetails
	}
	return flags
}

func (s Shot) toShotSpec() (domain.ShotSpec, error) {
	shotType := domain.ShotTypeMid
	if s.Type != "" {
		t, err := domain.ParseShotType(s.Type)
		if err != nil {
			return domain.ShotSpec{}, err
		}
		shotType = t
	}
	angle := domain.CameraAngleEyeLevel
	if s.Angle != "" {
		a, err := domain.ParseCameraAngle(s.Angle)
		if err != nil {
			return domain.ShotSpec{}, err
		}
		angle = a
	}
	spec := domain.NewShotSpec(s.Pose, shotType, angle)
	spec.SceneArea = s.Area
	spec.CreativeOverride = s.Override
	return spec, nil
}

// loadImages は、画像ファイルを並行して読み込み、ブリーフの記載順にAddImageコマンドを返します
func (b *Brief) loadImages(ctx context.Context) ([]application.Command, error) {
	type source struct {
		collection domain.ImageCollection
		path       string
	}
	var sources []source
	for _, c := range []struct {
		collection domain.ImageCollection
		paths      []string
	}{
		{domain.CollectionProduct, b.Images.Product},
		{domain.CollectionDetail, b.Images.Detail},
		{domain.CollectionReference, b.Images.Reference},
		{domain.CollectionModelSheet, b.Images.Model},
	} {
		for _, p := range c.paths {
			sources = append(sources, source{collection: c.collection, path: p})
		}
	}

	cmds := make([]application.Command, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(loadConcurrency)
	for i, src := range sources {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			path := src.path
			if !filepath.IsAbs(path) {
				path = filepath.Join(b.baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("画像 %s の読み込みに失敗: %w", src.path, err)
			}
			cmds[i] = application.AddImage{
				Collection: src.collection,
				Image:      domain.NewReferenceImage(filepath.Base(path), "", data),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return cmds, nil
}
