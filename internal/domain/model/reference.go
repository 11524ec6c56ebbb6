package model

// CatalogItem is one entry of the countable-item list (the List_so sheet):
// a PLU code and its display name.
type CatalogItem struct {
	PLU  string `json:"plu"`
	Name string `json:"namaBarang"`
}

// CrewMember is one roster entry from the Absensi sheet. Field names follow
// the form's wire format.
type CrewMember struct {
	NIK   string `json:"nik"`
	Name  string `json:"nama"`
	Role  string `json:"jabatan"`
	Date  string `json:"tanggal"`
	Shift string `json:"shift"`
	Phone string `json:"noHandphone"`
}
