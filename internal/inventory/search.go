package inventory

import (
	"strings"

	"restoran-pos/internal/models"
)

// normalizeTurkish: Türkçe karakterleri ASCII karşılıklarına çevirip küçük harfe indirir
// Örn: "ÇİKOLATALI SÜTLAÇ" -> "cikolatali sutlac"
func normalizeTurkish(s string) string {
	replacements := map[rune]string{
		'ç': "c", 'Ç': "C",
		'ğ': "g", 'Ğ': "G",
		'ı': "i", 'İ': "I",
		'ö': "o", 'Ö': "O",
		'ş': "s", 'Ş': "S",
		'ü': "u", 'Ü': "U",
	}

	var result strings.Builder
	for _, r := range s {
		if replacement, ok := replacements[r]; ok {
			result.WriteString(replacement)
		} else {
			result.WriteRune(r)
		}
	}
	return strings.ToLower(strings.TrimSpace(result.String()))
}

// matchesSearch: arama terimi ürün adında veya açıklamasında geçiyor mu.
// SQL LOWER() Türkçe İ/ı harflerini doğru çevirmediği için eşleştirme burada yapılır.
func matchesSearch(p models.Product, term string) bool {
	term = normalizeTurkish(term)
	if term == "" {
		return true
	}
	return strings.Contains(normalizeTurkish(p.Name), term) ||
		strings.Contains(normalizeTurkish(p.Description), term)
}

func filterBySearch(products []models.Product, term string) []models.Product {
	if strings.TrimSpace(term) == "" {
		return products
	}
	res := make([]models.Product, 0, len(products))
	for _, p := range products {
		if matchesSearch(p, term) {
			res = append(res, p)
		}
	}
	return res
}
