package utils

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AwardImageName builds the stable filename for a user's award image.
func AwardImageName(userID uint, awardKey string) string {
	return fmt.Sprintf("user%d_%s.svg", userID, awardKey)
}

// GenerateAwardImage renders a simple badge SVG for a crossed milestone into
// dir and returns the final path. Generation is best effort: any failure is
// reported to the caller, who logs and moves on. The file is written to a
// temp name first and renamed so readers never see a partial image.
func GenerateAwardImage(dir string, userID uint, awardKey, label, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("award image dir not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create award dir: %w", err)
	}

	final := filepath.Join(dir, AwardImageName(userID, awardKey))
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")

	svg := buildBadgeSVG(label, name)
	if err := os.WriteFile(tmp, []byte(svg), 0o644); err != nil {
		return "", fmt.Errorf("write award image: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize award image: %w", err)
	}
	return final, nil
}

func buildBadgeSVG(label, name string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="480" height="240" viewBox="0 0 480 240">`)
	b.WriteString(`<rect width="480" height="240" rx="16" fill="#1b5e20"/>`)
	b.WriteString(`<circle cx="240" cy="84" r="44" fill="#ffd54f"/>`)
	b.WriteString(`<text x="240" y="160" text-anchor="middle" font-family="sans-serif" font-size="28" fill="#ffffff">`)
	_ = xml.EscapeText(&b, []byte(label))
	b.WriteString(`</text>`)
	b.WriteString(`<text x="240" y="200" text-anchor="middle" font-family="sans-serif" font-size="20" fill="#c8e6c9">`)
	_ = xml.EscapeText(&b, []byte(name))
	b.WriteString(`</text>`)
	b.WriteString(`</svg>`)
	return b.String()
}
