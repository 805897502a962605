package generator

import (
	"fmt"
	"strings"
)

func standardPrompt(grade int, subject, topic string, count int) string {
	return fmt.Sprintf(`%[1]d. sınıf öğrencisi için %[2]s dersinden "%[3]s" konusu hakkında %[4]d adet eğitici flashcard oluştur.

Her flashcard için şunları sağla:
1. Kavramın anlaşılmasını test eden açık, kısa bir soru veya ifade
2. İçeriğin %[1]d. sınıf seviyesine uygun olduğundan emin ol
3. "%[3]s" konusuyla ilgili temel kavramlar, tanımlar veya önemli gerçeklere odaklan

Yanıtını şu yapıda bir JSON dizisi olarak formatla:
[
  {
    "content": "... nedir?"
  },
  {
    "content": "... nasıl açıklanır?"
  }
]

Her flashcard'ın eğitici, ilgi çekici ve sınıf seviyesine uygun olduğundan emin ol.`, grade, subject, topic, count)
}

func explanatoryPrompt(grade int, subject, topic string, difficult []string) string {
	lines := make([]string, len(difficult))
	for i, text := range difficult {
		lines[i] = fmt.Sprintf("%d. %s", i+1, text)
	}

	return fmt.Sprintf(`%[1]d. sınıf öğrencisi "%[3]s" konusundan %[2]s dersinde bu kavramları anlamakta zorlanıyor:

%[4]s

Şunları yapan açıklayıcı flashcard'lar oluştur:
1. Her zor kavramı daha basit terimlerle açıkla
2. %[1]d. sınıf için uygun örnekler kullan
3. Adım adım açıklamalar sağla
4. Yardımcı olduğunda analojiler veya gerçek dünya bağlantıları kullan

Yanıtını şu yapıda bir JSON dizisi olarak formatla:
[
  {
    "content": "Bu kavramı daha basit terimlerle açıklayayım...",
    "explanation": "Ek yardımcı detaylar veya örnekler"
  }
]

Açıklamaların açık, cesaret verici ve güven artırıcı olduğundan emin ol.`, grade, subject, topic, strings.Join(lines, "\n"))
}
