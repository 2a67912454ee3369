// Package validation содержит функции валидации входных данных.
package validation

// vinValues сопоставляет символам VIN их числовые значения по ISO 3779.
// Буквы I, O и Q в VIN не используются.
var vinValues = map[byte]int{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
	'0': 0, '1': 1, '2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
}

// vinWeights — веса позиций при вычислении контрольной цифры.
var vinWeights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// IsValidVIN проверяет корректность VIN по контрольной цифре алгоритма ISO 3779.
func IsValidVIN(vin string) bool {
	if len(vin) != 17 {
		return false
	}

	sum := 0
	for i := 0; i < 17; i++ {
		v, ok := vinValues[vin[i]]
		if !ok {
			return false
		}
		sum += v * vinWeights[i]
	}

	rem := sum % 11
	check := byte('0' + rem)
	if rem == 10 {
		check = 'X'
	}

	return vin[8] == check
}
