package domain

import "strings"

// MergeCast は生成されたキャラクターを既存スロットへ反映します。
// overwrite が false の場合、ユーザーが入力済みのフィールドは一切上書きせず、空のフィールドだけを埋めます。
// generated が短い場合、残りのスロットはそのまま残ります。
func MergeCast(existing, generated Cast, overwrite bool) Cast {
	size := len(existing)
	if len(generated) > size {
		size = len(generated)
	}

	merged := make(Cast, size)
	for i := range merged {
		var cur, gen CharacterProfile
		if i < len(existing) {
			cur = existing[i]
		}
		if i < len(generated) {
			gen = generated[i]
		}

		if overwrite {
			if i < len(generated) {
				merged[i] = gen
			} else {
				merged[i] = cur
			}
			continue
		}

		merged[i] = CharacterProfile{
			Name:        fillEmpty(cur.Name, gen.Name),
			Gender:      fillEmpty(cur.Gender, gen.Gender),
			Age:         fillEmpty(cur.Age, gen.Age),
			Description: fillEmpty(cur.Description, gen.Description),
		}
	}
	return merged
}

// PadCast は結果を size 件に揃えます。不足分は空のプロフィール、超過分は切り捨てです。
func PadCast(cast Cast, size int) Cast {
	if size < 0 {
		size = 0
	}
	out := make(Cast, size)
	copy(out, cast)
	return out
}

func fillEmpty(current, candidate string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return strings.TrimSpace(candidate)
}
