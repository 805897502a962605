package models

const (
	MinGrade = 1
	MaxGrade = 12
)

// Subjects is the fixed list of lessons a set can belong to, in display order
var Subjects = []string{
	"Matematik",
	"Fen Bilimleri",
	"Türkçe",
	"Sosyal Bilgiler",
	"Tarih",
	"Coğrafya",
	"Biyoloji",
	"Kimya",
	"Fizik",
	"Edebiyat",
	"Resim",
	"Müzik",
	"Beden Eğitimi",
	"Bilgisayar Bilimleri",
	"Yabancı Dil",
}

// Grades returns 1..12
func Grades() []int {
	grades := make([]int, 0, MaxGrade-MinGrade+1)
	for g := MinGrade; g <= MaxGrade; g++ {
		grades = append(grades, g)
	}
	return grades
}

// IsValidGrade reports whether g is within 1..12
func IsValidGrade(g int) bool {
	return g >= MinGrade && g <= MaxGrade
}

// IsValidSubject reports whether s is one of Subjects
func IsValidSubject(s string) bool {
	for _, subject := range Subjects {
		if subject == s {
			return true
		}
	}
	return false
}
