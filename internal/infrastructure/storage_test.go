package infrastructure

import "testing"

func TestMinioStorePublicURL(t *testing.T) {
	store, err := NewMinioStore(StorageConfig{
		Endpoint:  "storage.example.com",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "line-content",
		UseSSL:    true,
	})
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}

	got := store.PublicURL("attachments/M1.jpg")
	want := "https://storage.example.com/line-content/attachments/M1.jpg"
	if got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}
