package main

import (
	"errors"
	"fmt"

	"studiobot/internal/application"
	"studiobot/internal/domain"
	"studiobot/internal/infrastructure/brief"
	"studiobot/internal/infrastructure/storage"

	"github.com/spf13/cobra"
)

func newShootCmd() *cobra.Command {
	var (
		briefPath   string
		outDir      string
		showPrompts bool
	)

	cmd := &cobra.Command{
		Use:   "shoot",
		Short: "YAMLの撮影ブリーフから撮影を実行します",
		Long: `撮影ブリーフに記載された画像・シーン・品質設定・ショットリストを読み込み、
ショットを順番に生成して出力先ディレクトリに書き出します。

最初に成功したショットがアンカーとなり、以降のショットの背景とライティングを揃えます。`,
		Example: `  # ブリーフから撮影して ./out に書き出す
  studiobot shoot --brief brief.yaml --out out

  # 各ショットのプロンプトも表示する
  studiobot shoot --brief brief.yaml --prompts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := brief.Load(briefPath)
			if err != nil {
				return err
			}
			studio, err := a.localStudio(ctx)
			if err != nil {
				return err
			}
			has, err := a.credentials.HasCustomCredential(ctx, studio.OwnerID)
			if err != nil {
				return err
			}
			cmds, err := b.Commands(ctx, has)
			if err != nil {
				return err
			}
			for _, c := range cmds {
				if err := studio.Store.Dispatch(c); err != nil {
					return fmt.Errorf("ブリーフの適用に失敗: %w", err)
				}
			}

			st := studio.Store.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🎬 %s: %d ショットを撮影します\n", st.Scene.DisplayTitle(), len(st.Shots))

			n := 0
			run, runErr := studio.Orchestrator.Execute(ctx, func(res domain.GenerationResult) {
				n++
				fmt.Fprintf(out, "📸 ショット %d/%d を生成しました\n", n, len(st.Shots))
				if showPrompts {
					fmt.Fprintf(out, "%s\n\n", res.Prompt)
				}
			})
			if run == nil {
				return runErr
			}

			if len(run.Results) > 0 {
				dir := a.config.Studio.OutputDir
				if outDir != "" {
					dir = outDir
				}
				paths, err := storage.NewFileImageStore(dir).ExportResults(ctx, st.Scene.DisplayTitle(), run)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(out, "💾 %s\n", p)
				}
			}

			switch run.Phase {
			case domain.RunCompleted:
				fmt.Fprintf(out, "✅ 撮影が完了しました（%d/%d 枚）\n", len(run.Results), len(run.Shots))
				return nil
			case domain.RunAwaitingCredential:
				return fmt.Errorf("ショット %d でAPIキーが拒否されました。GEMINI_API_KEY を確認して再実行してください: %w",
					run.ShotIndex(run.FailedShot)+1, runErr)
			case domain.RunCancelled:
				fmt.Fprintf(out, "⏹️ 撮影をキャンセルしました（%d/%d 枚）\n", len(run.Results), len(run.Shots))
				if errors.Is(runErr, application.ErrRunCancelled) {
					return nil
				}
				return runErr
			default:
				return fmt.Errorf("ショット %d の生成に失敗: %w", run.ShotIndex(run.FailedShot)+1, runErr)
			}
		},
	}

	cmd.Flags().StringVarP(&briefPath, "brief", "b", "", "撮影ブリーフ（YAML）のパス")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "書き出し先ディレクトリ（STUDIO_OUTPUT_DIRより優先）")
	cmd.Flags().BoolVar(&showPrompts, "prompts", false, "生成に使ったプロンプトを表示する")
	_ = cmd.MarkFlagRequired("brief")

	return cmd
}
