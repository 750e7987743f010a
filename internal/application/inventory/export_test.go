package inventory

// LockerSize expone el número de claves vivas para las pruebas externas.
func LockerSize(l *KeyLocker) int { return l.size() }
