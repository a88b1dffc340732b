package builder

import (
	"context"
	"testing"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
)

func TestBuildImageStore(t *testing.T) {
	cases := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"dataurlを指定するとDataURLStoreになること", storage.BackendDataURL, false},
		{"未指定ならLocalStoreになること", "", false},
		{"localを指定するとLocalStoreになること", storage.BackendLocal, false},
		{"エンドポイントのないminioはエラーになること", storage.BackendMinIO, true},
		{"未対応のバックエンドはエラーになること", "gcs", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{ImageStore: tc.backend, OutputDir: t.TempDir()}
			store, err := BuildImageStore(context.Background(), cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("エラーが返されませんでした")
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラーです: %v", err)
			}
			switch tc.backend {
			case storage.BackendDataURL:
				if _, ok := store.(*storage.DataURLStore); !ok {
					t.Errorf("期待値 *DataURLStore, 実際の値 %T", store)
				}
			default:
				if _, ok := store.(*storage.LocalStore); !ok {
					t.Errorf("期待値 *LocalStore, 実際の値 %T", store)
				}
			}
		})
	}
}
