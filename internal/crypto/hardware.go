package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// HardwareInfo - необязательный источник идентификаторов железа (плата, прошивка, диски, GPU).
// Реализация должна быть детерминированной и не требовать повышенных привилегий.
type HardwareInfo interface {
	Identifiers() []string
}

// NoHardwareInfo - источник железа отсутствует
type NoHardwareInfo struct{}

// Identifiers всегда пуст
func (NoHardwareInfo) Identifiers() []string { return nil }

// SysfsInfo читает идентификаторы из /sys (Linux). На других ОС ничего не находит.
type SysfsInfo struct {
	// Root - корень sysfs, для тестов
	Root string
}

// файлы DMI, доступные на чтение без root
var dmiFiles = []string{
	"board_vendor", "board_name", "board_version",
	"bios_vendor", "bios_version", "bios_date",
	"sys_vendor", "product_name", "product_family",
}

// Identifiers возвращает значения DMI, модели блочных устройств и PCI id видеокарт
func (s SysfsInfo) Identifiers() []string {
	root := s.Root
	if root == "" {
		root = "/sys"
	}

	var ids []string
	for _, name := range dmiFiles {
		if v := readTrimmed(filepath.Join(root, "class", "dmi", "id", name)); v != "" {
			ids = append(ids, name+"="+v)
		}
	}

	// диски
	disks, _ := filepath.Glob(filepath.Join(root, "block", "*", "device", "model"))
	sort.Strings(disks)
	for _, path := range disks {
		if v := readTrimmed(path); v != "" {
			ids = append(ids, "disk="+v)
		}
	}

	// GPU
	cards, _ := filepath.Glob(filepath.Join(root, "class", "drm", "card[0-9]*", "device"))
	sort.Strings(cards)
	for _, dir := range cards {
		vendor := readTrimmed(filepath.Join(dir, "vendor"))
		device := readTrimmed(filepath.Join(dir, "device"))
		if vendor != "" || device != "" {
			ids = append(ids, "gpu="+vendor+":"+device)
		}
	}

	return ids
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// переменные окружения, участвующие в ключе
var hardwareEnv = []string{
	"COMPUTERNAME", "PROCESSOR_ARCHITECTURE", "PROCESSOR_REVISION", "PROCESSOR_IDENTIFIER",
	"PROCESSOR_LEVEL", "NUMBER_OF_PROCESSORS", "OS", "USERNAME", "USERDOMAIN", "USERDOMAIN_ROAMINGPROFILE",
	"APPDATA", "HOMEPATH", "LOGONSERVER", "LOCALAPPDATA", "TEMP", "TMP",
}

// отсутствующее значение, чтобы пустая строка и "нет значения" различались
const absent = "\x00\x00\x00\x00\x00\x00\x00\x00\x00"

// virtualPrefixes - интерфейсы, которые появляются и исчезают вместе с контейнерами и VPN
var virtualPrefixes = []string{"docker", "veth", "br-", "virbr", "vboxnet", "vmnet", "tun", "tap", "utun", "wg", "zt"}

// hardwareID собирает сигналы машины и кодирует их в base64.
// Каждый сигнал необязателен: недоступный просто пропускается.
func hardwareID(info HardwareInfo) string {
	var buf bytes.Buffer

	// базовая информация о системе
	buf.WriteString(runtime.GOOS)
	buf.WriteString(runtime.GOARCH)
	_ = binary.Write(&buf, binary.BigEndian, int32(runtime.NumCPU()))
	_ = binary.Write(&buf, binary.BigEndian, int32(os.PathSeparator))
	_ = binary.Write(&buf, binary.BigEndian, int32(os.PathListSeparator))
	if runtime.GOOS == "windows" {
		buf.WriteString("\r\n")
	} else {
		buf.WriteString("\n")
	}

	// "свойства" системы
	for _, value := range systemProperties() {
		buf.WriteString(value)
	}

	for _, key := range hardwareEnv {
		value, ok := os.LookupEnv(key)
		if !ok {
			value = absent
		}
		buf.WriteString(value)
	}

	for _, iface := range physicalInterfaces() {
		buf.WriteString(iface.Name)
		buf.Write(iface.HardwareAddr)
		_ = binary.Write(&buf, binary.BigEndian, int32(iface.MTU))
	}

	if info != nil {
		for _, id := range info.Identifiers() {
			buf.WriteString(id)
		}
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func systemProperties() []string {
	props := make([]string, 0, 4)

	home, err := os.UserHomeDir()
	if err != nil {
		home = absent
	}
	props = append(props, home)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = absent
	}
	props = append(props, hostname)

	user := os.Getenv("USER")
	if user == "" {
		user = absent
	}
	props = append(props, user, os.TempDir())

	return props
}

// physicalInterfaces возвращает не loopback и не виртуальные интерфейсы с MAC адресом, отсортированные по имени
func physicalInterfaces() []net.Interface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	result := make([]net.Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 || isVirtual(iface.Name) {
			continue
		}
		result = append(result, iface)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func isVirtual(name string) bool {
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
