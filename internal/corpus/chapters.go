package corpus

// ChapterCount is the number of chapters in the verse corpus.
const ChapterCount = 114

// Chapter describes one chapter of the verse corpus.
type Chapter struct {
	Number     int    `json:"number"`
	Name       string `json:"name"`
	NameNative string `json:"nameNative"`
	Verses     int    `json:"verses"`
}

// chapters is indexed by chapter number minus one.
var chapters = [ChapterCount]Chapter{
	{Number: 1, Name: "Al-Fatihah", NameNative: "الفاتحة", Verses: 7},
	{Number: 2, Name: "Al-Baqarah", NameNative: "البقرة", Verses: 286},
	{Number: 3, Name: "Ali 'Imran", NameNative: "آل عمران", Verses: 200},
	{Number: 4, Name: "An-Nisa", NameNative: "النساء", Verses: 176},
	{Number: 5, Name: "Al-Ma'idah", NameNative: "المائدة", Verses: 120},
	{Number: 6, Name: "Al-An'am", NameNative: "الأنعام", Verses: 165},
	{Number: 7, Name: "Al-A'raf", NameNative: "الأعراف", Verses: 206},
	{Number: 8, Name: "Al-Anfal", NameNative: "الأنفال", Verses: 75},
	{Number: 9, Name: "At-Tawbah", NameNative: "التوبة", Verses: 129},
	{Number: 10, Name: "Yunus", NameNative: "يونس", Verses: 109},
	{Number: 11, Name: "Hud", NameNative: "هود", Verses: 123},
	{Number: 12, Name: "Yusuf", NameNative: "يوسف", Verses: 111},
	{Number: 13, Name: "Ar-Ra'd", NameNative: "الرعد", Verses: 43},
	{Number: 14, Name: "Ibrahim", NameNative: "ابراهيم", Verses: 52},
	{Number: 15, Name: "Al-Hijr", NameNative: "الحجر", Verses: 99},
	{Number: 16, Name: "An-Nahl", NameNative: "النحل", Verses: 128},
	{Number: 17, Name: "Al-Isra", NameNative: "الإسراء", Verses: 111},
	{Number: 18, Name: "Al-Kahf", NameNative: "الكهف", Verses: 110},
	{Number: 19, Name: "Maryam", NameNative: "مريم", Verses: 98},
	{Number: 20, Name: "Taha", NameNative: "طه", Verses: 135},
	{Number: 21, Name: "Al-Anbya", NameNative: "الأنبياء", Verses: 112},
	{Number: 22, Name: "Al-Hajj", NameNative: "الحج", Verses: 78},
	{Number: 23, Name: "Al-Mu'minun", NameNative: "المؤمنون", Verses: 118},
	{Number: 24, Name: "An-Nur", NameNative: "النور", Verses: 64},
	{Number: 25, Name: "Al-Furqan", NameNative: "الفرقان", Verses: 77},
	{Number: 26, Name: "Ash-Shu'ara", NameNative: "الشعراء", Verses: 227},
	{Number: 27, Name: "An-Naml", NameNative: "النمل", Verses: 93},
	{Number: 28, Name: "Al-Qasas", NameNative: "القصص", Verses: 88},
	{Number: 29, Name: "Al-'Ankabut", NameNative: "العنكبوت", Verses: 69},
	{Number: 30, Name: "Ar-Rum", NameNative: "الروم", Verses: 60},
	{Number: 31, Name: "Luqman", NameNative: "لقمان", Verses: 34},
	{Number: 32, Name: "As-Sajdah", NameNative: "السجدة", Verses: 30},
	{Number: 33, Name: "Al-Ahzab", NameNative: "الأحزاب", Verses: 73},
	{Number: 34, Name: "Saba", NameNative: "سبإ", Verses: 54},
	{Number: 35, Name: "Fatir", NameNative: "فاطر", Verses: 45},
	{Number: 36, Name: "Ya-Sin", NameNative: "يس", Verses: 83},
	{Number: 37, Name: "As-Saffat", NameNative: "الصافات", Verses: 182},
	{Number: 38, Name: "Sad", NameNative: "ص", Verses: 88},
	{Number: 39, Name: "Az-Zumar", NameNative: "الزمر", Verses: 75},
	{Number: 40, Name: "Ghafir", NameNative: "غافر", Verses: 85},
	{Number: 41, Name: "Fussilat", NameNative: "فصلت", Verses: 54},
	{Number: 42, Name: "Ash-Shuraa", NameNative: "الشورى", Verses: 53},
	{Number: 43, Name: "Az-Zukhruf", NameNative: "الزخرف", Verses: 89},
	{Number: 44, Name: "Ad-Dukhan", NameNative: "الدخان", Verses: 59},
	{Number: 45, Name: "Al-Jathiyah", NameNative: "الجاثية", Verses: 37},
	{Number: 46, Name: "Al-Ahqaf", NameNative: "الأحقاف", Verses: 35},
	{Number: 47, Name: "Muhammad", NameNative: "محمد", Verses: 38},
	{Number: 48, Name: "Al-Fath", NameNative: "الفتح", Verses: 29},
	{Number: 49, Name: "Al-Hujurat", NameNative: "الحجرات", Verses: 18},
	{Number: 50, Name: "Qaf", NameNative: "ق", Verses: 45},
	{Number: 51, Name: "Adh-Dhariyat", NameNative: "الذاريات", Verses: 60},
	{Number: 52, Name: "At-Tur", NameNative: "الطور", Verses: 49},
	{Number: 53, Name: "An-Najm", NameNative: "النجم", Verses: 62},
	{Number: 54, Name: "Al-Qamar", NameNative: "القمر", Verses: 55},
	{Number: 55, Name: "Ar-Rahman", NameNative: "الرحمن", Verses: 78},
	{Number: 56, Name: "Al-Waqi'ah", NameNative: "الواقعة", Verses: 96},
	{Number: 57, Name: "Al-Hadid", NameNative: "الحديد", Verses: 29},
	{Number: 58, Name: "Al-Mujadila", NameNative: "المجادلة", Verses: 22},
	{Number: 59, Name: "Al-Hashr", NameNative: "الحشر", Verses: 24},
	{Number: 60, Name: "Al-Mumtahanah", NameNative: "الممتحنة", Verses: 13},
	{Number: 61, Name: "As-Saf", NameNative: "الصف", Verses: 14},
	{Number: 62, Name: "Al-Jumu'ah", NameNative: "الجمعة", Verses: 11},
	{Number: 63, Name: "Al-Munafiqun", NameNative: "المنافقون", Verses: 11},
	{Number: 64, Name: "At-Taghabun", NameNative: "التغابن", Verses: 18},
	{Number: 65, Name: "At-Talaq", NameNative: "الطلاق", Verses: 12},
	{Number: 66, Name: "At-Tahrim", NameNative: "التحريم", Verses: 12},
	{Number: 67, Name: "Al-Mulk", NameNative: "الملك", Verses: 30},
	{Number: 68, Name: "Al-Qalam", NameNative: "القلم", Verses: 52},
	{Number: 69, Name: "Al-Haqqah", NameNative: "الحاقة", Verses: 52},
	{Number: 70, Name: "Al-Ma'arij", NameNative: "المعارج", Verses: 44},
	{Number: 71, Name: "Nuh", NameNative: "نوح", Verses: 28},
	{Number: 72, Name: "Al-Jinn", NameNative: "الجن", Verses: 28},
	{Number: 73, Name: "Al-Muzzammil", NameNative: "المزمل", Verses: 20},
	{Number: 74, Name: "Al-Muddaththir", NameNative: "المدثر", Verses: 56},
	{Number: 75, Name: "Al-Qiyamah", NameNative: "القيامة", Verses: 40},
	{Number: 76, Name: "Al-Insan", NameNative: "الانسان", Verses: 31},
	{Number: 77, Name: "Al-Mursalat", NameNative: "المرسلات", Verses: 50},
	{Number: 78, Name: "An-Naba", NameNative: "النبإ", Verses: 40},
	{Number: 79, Name: "An-Nazi'at", NameNative: "النازعات", Verses: 46},
	{Number: 80, Name: "Abasa", NameNative: "عبس", Verses: 42},
	{Number: 81, Name: "At-Takwir", NameNative: "التكوير", Verses: 29},
	{Number: 82, Name: "Al-Infitar", NameNative: "الإنفطار", Verses: 19},
	{Number: 83, Name: "Al-Mutaffifin", NameNative: "المطففين", Verses: 36},
	{Number: 84, Name: "Al-Inshiqaq", NameNative: "الإنشقاق", Verses: 25},
	{Number: 85, Name: "Al-Buruj", NameNative: "البروج", Verses: 22},
	{Number: 86, Name: "At-Tariq", NameNative: "الطارق", Verses: 17},
	{Number: 87, Name: "Al-A'la", NameNative: "الأعلى", Verses: 19},
	{Number: 88, Name: "Al-Ghashiyah", NameNative: "الغاشية", Verses: 26},
	{Number: 89, Name: "Al-Fajr", NameNative: "الفجر", Verses: 30},
	{Number: 90, Name: "Al-Balad", NameNative: "البلد", Verses: 20},
	{Number: 91, Name: "Ash-Shams", NameNative: "الشمس", Verses: 15},
	{Number: 92, Name: "Al-Layl", NameNative: "الليل", Verses: 21},
	{Number: 93, Name: "Ad-Duhaa", NameNative: "الضحى", Verses: 11},
	{Number: 94, Name: "Ash-Sharh", NameNative: "الشرح", Verses: 8},
	{Number: 95, Name: "At-Tin", NameNative: "التين", Verses: 8},
	{Number: 96, Name: "Al-Alaq", NameNative: "العلق", Verses: 19},
	{Number: 97, Name: "Al-Qadr", NameNative: "القدر", Verses: 5},
	{Number: 98, Name: "Al-Bayyinah", NameNative: "البينة", Verses: 8},
	{Number: 99, Name: "Az-Zalzalah", NameNative: "الزلزلة", Verses: 8},
	{Number: 100, Name: "Al-Adiyat", NameNative: "العاديات", Verses: 11},
	{Number: 101, Name: "Al-Qari'ah", NameNative: "القارعة", Verses: 11},
	{Number: 102, Name: "At-Takathur", NameNative: "التكاثر", Verses: 8},
	{Number: 103, Name: "Al-Asr", NameNative: "العصر", Verses: 3},
	{Number: 104, Name: "Al-Humazah", NameNative: "الهمزة", Verses: 9},
	{Number: 105, Name: "Al-Fil", NameNative: "الفيل", Verses: 5},
	{Number: 106, Name: "Quraysh", NameNative: "قريش", Verses: 4},
	{Number: 107, Name: "Al-Ma'un", NameNative: "الماعون", Verses: 7},
	{Number: 108, Name: "Al-Kawthar", NameNative: "الكوثر", Verses: 3},
	{Number: 109, Name: "Al-Kafirun", NameNative: "الكافرون", Verses: 6},
	{Number: 110, Name: "An-Nasr", NameNative: "النصر", Verses: 3},
	{Number: 111, Name: "Al-Masad", NameNative: "المسد", Verses: 5},
	{Number: 112, Name: "Al-Ikhlas", NameNative: "الإخلاص", Verses: 4},
	{Number: 113, Name: "Al-Falaq", NameNative: "الفلق", Verses: 5},
	{Number: 114, Name: "An-Nas", NameNative: "الناس", Verses: 6},
}

// LookupChapter returns the chapter with the given number.
func LookupChapter(number int) (Chapter, bool) {
	if number < 1 || number > ChapterCount {
		return Chapter{}, false
	}
	return chapters[number-1], true
}

// Chapters returns all chapters in order.
func Chapters() []Chapter {
	out := make([]Chapter, ChapterCount)
	copy(out, chapters[:])
	return out
}

// VerseCount returns the number of verses in a chapter, or 0 for an
// unknown chapter.
func VerseCount(chapter int) int {
	c, ok := LookupChapter(chapter)
	if !ok {
		return 0
	}
	return c.Verses
}

// TotalVerses returns the number of verses across all chapters.
func TotalVerses() int {
	total := 0
	for _, c := range chapters {
		total += c.Verses
	}
	return total
}

// IsValidVerse reports whether verse exists in chapter.
func IsValidVerse(chapter, verse int) bool {
	return verse >= 1 && verse <= VerseCount(chapter)
}

// ClampVerse clamps verse into [1, VerseCount(chapter)]. Unknown chapters
// return verse unchanged.
func ClampVerse(chapter, verse int) int {
	last := VerseCount(chapter)
	if last == 0 {
		return verse
	}
	return min(last, max(1, verse))
}

// ContextBounds returns the inclusive verse range covering window verses on
// each side of verse, clamped to the chapter.
func ContextBounds(chapter, verse, window int) (start, end int) {
	if window < 0 {
		window = 0
	}
	last := VerseCount(chapter)
	if last == 0 {
		return verse, verse
	}
	// Clamp first so verse+window cannot overflow.
	window = min(window, last)
	return max(1, verse-window), min(last, verse+window)
}
