package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studiobot",
		Short: "Gemini を使ったバーチャル商品撮影スタジオ",
		Long: `studiobot は、商品画像と参照画像からショットリストに沿った撮影画像を生成します。

Discord Bot として起動するほか、YAMLの撮影ブリーフからローカルで撮影を実行できます。
設定は .env ファイルと環境変数から読み込みます。`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newShootCmd(),
		newAnalyzeCmd(),
		newHistoryCmd(),
	)

	return cmd
}
