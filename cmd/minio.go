package cmd

import (
	"context"
	"fmt"

	"Bt1Stream/storage"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioStat   string
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看媒体存储桶：列出文件、查看统计信息、查看单个对象元数据，只读，不修改存储桶。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		if minioStat != "" {
			info, err := store.StatObject(ctx, minioStat)
			if err != nil {
				return err
			}
			printObject(info)
			return nil
		}

		objects, err := store.ListObjects(ctx, minioPrefix)
		if err != nil {
			return err
		}
		if minioStats {
			total := lo.SumBy(objects, func(o storage.ObjectInfo) int64 { return o.Size })
			byType := lo.CountValuesBy(objects, func(o storage.ObjectInfo) string {
				return lo.Ternary(o.ContentType == "", "unknown", o.ContentType)
			})
			fmt.Printf("\n对象数: %d, 总大小: %s\n", len(objects), storage.FormatSize(total))
			for ct, n := range byType {
				fmt.Printf("  %-28s %d\n", ct, n)
			}
			return nil
		}

		fmt.Printf("\n存储桶中的文件 (前缀: %q):\n", minioPrefix)
		for _, o := range objects {
			fmt.Printf("  %-50s %10s  %s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("共 %d 个对象\n", len(objects))
		return nil
	},
}

func printObject(o storage.ObjectInfo) {
	fmt.Printf("  Key:          %s\n", o.Key)
	fmt.Printf("  Size:         %s (%d bytes)\n", storage.FormatSize(o.Size), o.Size)
	fmt.Printf("  ContentType:  %s\n", o.ContentType)
	fmt.Printf("  ETag:         %s\n", o.ETag)
	fmt.Printf("  LastModified: %s\n", o.LastModified.Format("2006-01-02 15:04:05"))
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().StringVar(&minioStat, "stat", "", "查看单个对象的元数据")

	minioCmd.Example = `  # 列出所有文件
  bt1stream minio

  # 按前缀过滤文件
  bt1stream minio -p "audio/"

  # 显示存储桶统计信息
  bt1stream minio -s

  # 查看对象元数据
  bt1stream minio --stat audio/7.mp3`
}
