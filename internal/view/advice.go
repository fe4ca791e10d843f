package view

// Advice is one of the two static care blocks.
type Advice struct {
	Heading string
	Text    string
}

var (
	healthyAdvice = Advice{
		Heading: "Rekomendasi Perawatan",
		Text: "Rekomendasi Tindakan : berikan pupuk sesuai kebutuhan nutrisi, sesuaikan penyiraman untuk " +
			"menghindari kekeringan atau genangan, potong daun rusak parah, kendalikan hama dengan pestisida " +
			"alami, gunakan fungisida untuk infeksi jamur, atur pencahayaan sesuai kebutuhan tanaman, cuci " +
			"daun untuk menghilangkan polutan, dan tambahkan suplemen tanaman seperti pupuk cair atau " +
			"vitamin B1 untuk pemulihan.",
	}
	unhealthyAdvice = Advice{
		Heading: "Tips Perawatan",
		Text: "Tips : Untuk menjaga daun mangga tetap sehat, sirami secara teratur tanpa genangan, berikan " +
			"pupuk NPK atau organik, kendalikan hama dan penyakit, pastikan mendapat sinar matahari 6-8 jam " +
			"sehari, pangkas daun tua, gunakan tanah gembur dengan drainase baik, hindari polusi, dan " +
			"tambahkan suplemen seperti vitamin B1 atau pupuk cair.",
	}
)

// AdviceFor picks the care block by exact match on the healthy label.
func AdviceFor(class, healthyLabel string) (Advice, bool) {
	if class == healthyLabel {
		return healthyAdvice, true
	}
	return unhealthyAdvice, false
}
