package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

// systemPrompt builds the Turkish decomposition instructions with the
// subtask cap baked in.
func systemPrompt(maxSubtasks int) string {
	return fmt.Sprintf(`Sen bir görev yönetimi uzmanısın. Ana görevi daha küçük, yönetilebilir alt görevlere ayırman gerekiyor.

Kurallar:
1. Görevi bağımsız olarak tamamlanabilecek mantıklı alt görevlere böl
2. Her alt görev spesifik ve eyleme dönük olmalı
3. Alt görevleri kısa ama açıklayıcı tut
4. Tam olarak %d alt görev döndür
5. Görev basitse, daha az ama daha anlamlı alt görevler oluştur
6. Alt görevleri planlarken son tarihi dikkate al (sağlanmışsa)
7. Yanıtı sadece JSON formatında döndür
8. TÜM ALT GÖREVLERİ TÜRKÇE YAZ

Yanıt formatı:
{
  "subtasks": [
    {
      "content": "Alt görevin Türkçe açıklaması",
      "due": "YYYY-MM-DD (isteğe bağlı, ana görev son tarihine göre)",
      "priority": 1-4 (isteğe bağlı, 1=düşük, 4=yüksek)
    }
  ],
  "estimatedDuration": "Toplam tahmini süre (örn. '2 saat', '1 gün')"
}`, maxSubtasks)
}

// userPrompt builds the per-task prompt, anchoring the model's date
// suggestions on today and the parent task's deadline.
func userPrompt(req models.GenerationRequest, today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ana Görev: %s\n", req.TaskContent)
	if req.TaskDescription != "" {
		fmt.Fprintf(&b, "Açıklama: %s\n", req.TaskDescription)
	}
	if req.DueDate != "" {
		fmt.Fprintf(&b, "Son Tarih: %s\n", req.DueDate)
	}
	if req.MaxSubtasks > 0 {
		fmt.Fprintf(&b, "Maksimum Alt Görev: %d\n", req.MaxSubtasks)
	}
	if req.AdditionalContext != "" {
		fmt.Fprintf(&b, "Ek Bağlam: %s\n", req.AdditionalContext)
	}

	due := req.DueDate
	if due == "" {
		due = "Belirtilmemiş"
	}
	fmt.Fprintf(&b, `
ÖNEMLI: Her alt görev için uygun tarihleri öner:
- Bugün: %s
- Ana görevin son tarihi: %s
- Alt görevleri bu tarih aralığında mantıklı şekilde dağıt
- Önce yapılması gerekenler için daha erken tarihler ver
- Karmaşık alt görevler için daha fazla zaman ver

Lütfen bu görevi yukarıdaki kurallara uyarak alt görevlere böl. Alt görevlerin tamamı Türkçe olmalı.
`, today.Format("2006-01-02"), due)
	return b.String()
}

// strictJSONReminder is appended to the user prompt on regeneration
// after a malformed or invalid response.
const strictJSONReminder = `

UYARI: Önceki yanıt geçersizdi. SADECE geçerli JSON döndür: kod bloğu yok, açıklama yok, yalnızca yukarıdaki formatta tek bir JSON nesnesi. "due" alanı kesinlikle YYYY-MM-DD biçiminde, "priority" alanı 1 ile 4 arasında olmalı.`

// durationPrompt asks for a human-readable total-duration estimate.
func durationPrompt(taskContent, taskDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Görev: %s\n", taskContent)
	if taskDescription != "" {
		fmt.Fprintf(&b, "Açıklama: %s\n", taskDescription)
	}
	b.WriteString(`
Bu görevi tamamlamak için gereken toplam süreyi tahmin et. Şunları dikkate al:
- Görevin karmaşıklığı
- İçerdiği adım sayısı
- Her adım için gereken süre
- Herhangi bir bağımlılık

Sadece tahmini süreyi okunabilir formatta döndür (örn. "2 saat", "1 gün", "30 dakika").
`)
	return b.String()
}

const durationSystemPrompt = "Sen bir zaman tahmini uzmanısın. Görevler için doğru zaman tahminleri sağla. Yanıtlarını Türkçe ver."

// categorizePrompt asks for 1-3 category labels as a JSON string array.
func categorizePrompt(taskContent, taskDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Görev: %s\n", taskContent)
	if taskDescription != "" {
		fmt.Fprintf(&b, "Açıklama: %s\n", taskDescription)
	}
	b.WriteString(`
Bu görevi ilgili kategorilere ayır. Bu görevi en iyi tanımlayan 1-3 kategori döndür.
Örnekler: "Geliştirme", "Tasarım", "Araştırma", "Planlama", "Dokümantasyon", "Test", "Toplantı", "İnceleme"

Sadece kategorileri JSON string dizisi olarak döndür.
`)
	return b.String()
}

const categorizeSystemPrompt = "Sen bir görev kategorizasyon uzmanısın. Görevler için uygun kategoriler sağla. Kategorileri Türkçe ver."
