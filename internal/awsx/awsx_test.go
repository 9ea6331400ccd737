package awsx

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestLoad_StaticCredentialsAndEndpoint(t *testing.T) {
	cfg, err := Load(context.Background(), Options{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "fake",
		SecretAccessKey: "fake",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region != "us-east-1" {
		t.Errorf("Region = %q", cfg.Region)
	}
	if aws.ToString(cfg.BaseEndpoint) != "http://localhost:4566" {
		t.Errorf("BaseEndpoint = %q", aws.ToString(cfg.BaseEndpoint))
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "fake" || creds.SecretAccessKey != "fake" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func TestLoad_NoEndpoint(t *testing.T) {
	cfg, err := Load(context.Background(), Options{Region: "eu-west-1", AccessKeyID: "a", SecretAccessKey: "b"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseEndpoint != nil {
		t.Errorf("BaseEndpoint = %q, want nil", *cfg.BaseEndpoint)
	}
}

func TestOptions_HasEndpoint(t *testing.T) {
	if (Options{}).HasEndpoint() {
		t.Error("empty options should not have an endpoint")
	}
	if !(Options{Endpoint: "http://x"}).HasEndpoint() {
		t.Error("expected endpoint")
	}
}
