package rbac

// Permission — фиксированный идентификатор разрешения.
type Permission string

const (
	// KeyVault
	PermKeyvaultGenerateKeys  Permission = "keyvault:generate_keys"
	PermKeyvaultViewKeys      Permission = "keyvault:view_keys"
	PermKeyvaultDownloadKeys  Permission = "keyvault:download_keys"
	PermKeyvaultRotateKeys    Permission = "keyvault:rotate_keys"
	PermKeyvaultDeleteKeys    Permission = "keyvault:delete_keys"
	PermKeyvaultSendEmail     Permission = "keyvault:send_email"
	PermKeyvaultGenerateCerts Permission = "keyvault:generate_certs"
	PermKeyvaultViewCerts     Permission = "keyvault:view_certs"
	PermKeyvaultDownloadCerts Permission = "keyvault:download_certs"

	// Secret Scanner
	PermScannerScanText    Permission = "scanner:scan_text"
	PermScannerScanFiles   Permission = "scanner:scan_files"
	PermScannerScanURLs    Permission = "scanner:scan_urls"
	PermScannerRedact      Permission = "scanner:redact"
	PermScannerViewHistory Permission = "scanner:view_history"

	// Password Checker
	PermPasswordAnalyze     Permission = "password:analyze"
	PermPasswordBreachCheck Permission = "password:breach_check"

	// User Management
	PermUsersView              Permission = "users:view_users"
	PermUsersManage            Permission = "users:manage_users"
	PermUsersManagePermissions Permission = "users:manage_permissions"

	// Security Simulations
	PermSimulationsRun Permission = "simulations:run"
)

// Role — роль пользователя. Неизвестные строки приводятся к RoleNormal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoAdmin Role = "co_admin"
	RoleNormal  Role = "normal"
	RoleLimited Role = "limited"
)

// AllPermissions — полная вселенная разрешений (порядок стабилен для выдачи).
var AllPermissions = []Permission{
	PermKeyvaultGenerateKeys,
	PermKeyvaultViewKeys,
	PermKeyvaultDownloadKeys,
	PermKeyvaultRotateKeys,
	PermKeyvaultDeleteKeys,
	PermKeyvaultSendEmail,
	PermKeyvaultGenerateCerts,
	PermKeyvaultViewCerts,
	PermKeyvaultDownloadCerts,
	PermScannerScanText,
	PermScannerScanFiles,
	PermScannerScanURLs,
	PermScannerRedact,
	PermScannerViewHistory,
	PermPasswordAnalyze,
	PermPasswordBreachCheck,
	PermUsersView,
	PermUsersManage,
	PermUsersManagePermissions,
	PermSimulationsRun,
}

// Categories — группировка для отображения (админский справочник).
var Categories = map[string][]Permission{
	"KeyVault": {
		PermKeyvaultGenerateKeys, PermKeyvaultViewKeys, PermKeyvaultDownloadKeys,
		PermKeyvaultRotateKeys, PermKeyvaultDeleteKeys, PermKeyvaultSendEmail,
		PermKeyvaultGenerateCerts, PermKeyvaultViewCerts, PermKeyvaultDownloadCerts,
	},
	"Secret Scanner": {
		PermScannerScanText, PermScannerScanFiles, PermScannerScanURLs,
		PermScannerRedact, PermScannerViewHistory,
	},
	"Password Checker": {
		PermPasswordAnalyze, PermPasswordBreachCheck,
	},
	"User Management": {
		PermUsersView, PermUsersManage, PermUsersManagePermissions,
	},
	"Security Simulations": {
		PermSimulationsRun,
	},
}

// Names — человекочитаемые названия разрешений.
var Names = map[Permission]string{
	PermKeyvaultGenerateKeys:   "Generate Keys",
	PermKeyvaultViewKeys:       "View Keys",
	PermKeyvaultDownloadKeys:   "Download Keys",
	PermKeyvaultRotateKeys:     "Rotate Keys",
	PermKeyvaultDeleteKeys:     "Delete Keys",
	PermKeyvaultSendEmail:      "Send Keys by Email",
	PermKeyvaultGenerateCerts:  "Generate Certificates",
	PermKeyvaultViewCerts:      "View Certificates",
	PermKeyvaultDownloadCerts:  "Download Certificates",
	PermScannerScanText:        "Scan Text",
	PermScannerScanFiles:       "Scan Files",
	PermScannerScanURLs:        "Scan Remote URLs",
	PermScannerRedact:          "Redact Secrets",
	PermScannerViewHistory:     "View Scan History",
	PermPasswordAnalyze:        "Analyze Passwords",
	PermPasswordBreachCheck:    "Check Password Breaches",
	PermUsersView:              "View Users",
	PermUsersManage:            "Manage Users",
	PermUsersManagePermissions: "Manage Permissions",
	PermSimulationsRun:         "Run Security Simulations",
}

// RolePermissions — фиксированная таблица роль → разрешения.
// Запись admin намеренно равна полной вселенной, но для admin действует
// и безусловный bypass в резолвере, независимо от содержимого таблицы.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: AllPermissions,
	RoleCoAdmin: {
		PermKeyvaultGenerateKeys, PermKeyvaultViewKeys, PermKeyvaultDownloadKeys,
		PermKeyvaultRotateKeys, PermKeyvaultSendEmail,
		PermKeyvaultGenerateCerts, PermKeyvaultViewCerts, PermKeyvaultDownloadCerts,
		PermScannerScanText, PermScannerScanFiles, PermScannerScanURLs,
		PermScannerRedact, PermScannerViewHistory,
		PermPasswordAnalyze, PermPasswordBreachCheck,
		PermUsersView,
		PermSimulationsRun,
	},
	RoleNormal: {
		PermKeyvaultViewKeys, PermKeyvaultViewCerts,
		PermScannerScanText, PermScannerScanFiles, PermScannerRedact,
		PermScannerViewHistory,
		PermPasswordAnalyze, PermPasswordBreachCheck,
		PermSimulationsRun,
	},
	RoleLimited: {
		PermScannerScanText,
		PermPasswordAnalyze,
	},
}

var validPermissions = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(AllPermissions))
	for _, p := range AllPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// IsValid сообщает, определён ли такой идентификатор разрешения.
func IsValid(id string) bool {
	_, ok := validPermissions[Permission(id)]
	return ok
}

// FilterValid отбрасывает неизвестные идентификаторы (не ошибка: мусор в
// custom_permissions игнорируется, а не пробрасывается дальше).
func FilterValid(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if IsValid(id) {
			out = append(out, id)
		}
	}
	return out
}
