package main

import (
	"fmt"
	"os"
	"path/filepath"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAnalyzeCmd() *cobra.Command {
	var images []string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "商品画像を解析して撮影環境とポーズの提案をYAMLで出力します",
		Example: `  studiobot analyze --image bag-front.jpg --image bag-side.jpg > analysis.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			studio, err := a.localStudio(ctx)
			if err != nil {
				return err
			}
			for _, p := range images {
				data, err := os.ReadFile(p)
				if err != nil {
					return fmt.Errorf("画像 %s の読み込みに失敗: %w", p, err)
				}
				img := domain.NewReferenceImage(filepath.Base(p), "", data)
				if err := studio.Store.Dispatch(application.AddImage{Collection: domain.CollectionProduct, Image: img}); err != nil {
					return err
				}
			}

			result, err := studio.Analysis.Analyze(ctx)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringArrayVarP(&images, "image", "i", nil, "商品画像のパス（複数指定可）")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
