package ranking

// Level categories of the built-in table.
const (
	CategorySurga  = "surga"
	CategoryDunia  = "dunia"
	CategoryNeraka = "neraka"
)

// DefaultLevels returns the built-in 19-level table, highest rank first.
func DefaultLevels() []Level {
	return []Level{
		{Rank: 1, ID: "jannatul_firdaus", Name: "Jannatul Firdaus", Category: CategorySurga, MinPoints: 100000, Description: "Surga tertinggi, tempat para nabi dan syuhada"},
		{Rank: 2, ID: "al_maqamul_amin", Name: "Al-Maqamul Amin", Category: CategorySurga, MinPoints: 96000, Description: "Tempat yang aman dan mulia"},
		{Rank: 3, ID: "jannatul_adn", Name: "Jannatul 'Adn", Category: CategorySurga, MinPoints: 88000, Description: "Surga kediaman yang kekal"},
		{Rank: 4, ID: "darul_muqamah", Name: "Darul Muqamah", Category: CategorySurga, MinPoints: 77000, Description: "Rumah tempat tinggal yang tetap"},
		{Rank: 5, ID: "jannatun_naim", Name: "Jannatun Na'im", Category: CategorySurga, MinPoints: 67000, Description: "Surga penuh kenikmatan"},
		{Rank: 6, ID: "jannatul_mawa", Name: "Jannatul Ma'wa", Category: CategorySurga, MinPoints: 58000, Description: "Surga tempat bernaung"},
		{Rank: 7, ID: "darussalam", Name: "Darussalam", Category: CategorySurga, MinPoints: 50000, Description: "Negeri yang penuh kedamaian"},
		{Rank: 8, ID: "hakim_puncak_dunia", Name: "Hakim (Puncak Dunia)", Category: CategoryDunia, MinPoints: 45000, Description: "Pemimpin bijaksana di puncak dunia"},
		{Rank: 9, ID: "khalifah", Name: "Khalifah", Category: CategoryDunia, MinPoints: 37000, Description: "Pemimpin umat yang bertanggung jawab"},
		{Rank: 10, ID: "ahli", Name: "Ahli", Category: CategoryDunia, MinPoints: 25000, Description: "Orang yang memiliki keahlian dan ilmu"},
		{Rank: 11, ID: "musafir", Name: "Musafir", Category: CategoryDunia, MinPoints: 16000, Description: "Pengembara yang mencari ilmu dan hidayah"},
		{Rank: 12, ID: "insan_level_dasar", Name: "Insan (Level Dasar Dunia)", Category: CategoryDunia, MinPoints: 10000, Description: "Manusia biasa yang memulai perjalanan"},
		{Rank: 13, ID: "hawiyah_gerbang_keluar", Name: "Hawiyah (Gerbang Keluar)", Category: CategoryNeraka, MinPoints: 9500, Description: "Gerbang keluar menuju perbaikan diri"},
		{Rank: 14, ID: "sair", Name: "Sa'ir", Category: CategoryNeraka, MinPoints: 8500, Description: "Api yang menyala-nyala, peringatan untuk bertobat"},
		{Rank: 15, ID: "jahim", Name: "Jahim", Category: CategoryNeraka, MinPoints: 7000, Description: "Api yang sangat panas, motivasi untuk beramal"},
		{Rank: 16, ID: "hutamah", Name: "Hutamah", Category: CategoryNeraka, MinPoints: 5000, Description: "Tempat yang menghancurkan, saatnya bangkit"},
		{Rank: 17, ID: "saqar", Name: "Saqar", Category: CategoryNeraka, MinPoints: 3000, Description: "Api yang membakar kulit, motivasi berubah"},
		{Rank: 18, ID: "laza", Name: "Laza", Category: CategoryNeraka, MinPoints: 1500, Description: "Api yang menjilat, hampir mencapai dasar"},
		{Rank: 19, ID: "jahannam", Name: "Jahannam", Category: CategoryNeraka, MinPoints: 0, Description: "Level terendah, awal perjalanan menuju perbaikan"},
	}
}

// DefaultTable returns the validated built-in table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultLevels())
	if err != nil {
		panic("ranking: built-in table is invalid: " + err.Error())
	}
	return t
}
