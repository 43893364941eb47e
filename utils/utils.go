package utils

func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// Map returns a new array containing the results of applying `mapper` to each element of `array`
func Map[T any, U any](array []T, mapper func(T) U) []U {
	result := make([]U, len(array))
	for i, current := range array {
		result[i] = mapper(current)
	}
	return result
}

// Contains returns true if `array` contains `value`
func Contains[T comparable](array []T, value T) bool {
	for _, current := range array {
		if current == value {
			return true
		}
	}
	return false
}

// HumanJoin joins the quoted items with commas and a final conjunction,
// e.g. "'a', 'b', or 'c'". Used for check failure messages.
func HumanJoin(items []string, conjunction string) string {
	quoted := Map(items, func(item string) string { return "'" + item + "'" })
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " " + conjunction + " " + quoted[1]
	}
	joined := ""
	for _, item := range quoted[:len(quoted)-1] {
		joined += item + ", "
	}
	return joined + conjunction + " " + quoted[len(quoted)-1]
}
