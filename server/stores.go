package server

import (
	"cyberlab/internal/repo"
)

// storeSet — выбранные бэкенды хранения. Без БД всё живёт в памяти; коды
// дополнительно могут уехать в redis независимо от основного хранилища.
type storeSet struct {
	users repo.Users
	codes repo.Codes
	vault repo.Keyvault
	scans repo.Scans
}

func (a *App) buildStores() storeSet {
	var st storeSet
	if a.db != nil {
		st.users = repo.NewUserStore(a.db)
		st.codes = repo.NewCodeStore(a.db)
		st.vault = repo.NewKeyvaultStore(a.db)
		st.scans = repo.NewScanStore(a.db)
	} else {
		st.users = repo.NewMemUserStore()
		st.codes = repo.NewMemCodeStore()
		st.vault = repo.NewMemKeyvaultStore()
		st.scans = repo.NewMemScanStore()
	}
	if a.rdb != nil {
		st.codes = repo.NewRedisCodeStore(a.rdb)
	}
	return st
}
