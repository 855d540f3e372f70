package util

func physicalCores() int {
	return countCores("/sys/devices/system/cpu")
}
