package signals

import "github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"

// Built-in pattern sources. They are compiled into a PatternRegistry per
// instance; nothing here is mutated at runtime.

var codeIntentSources = map[domain.Language][]string{
	domain.LanguageEnglish: {
		`(?i)\b(write|create|implement|generate|code)\s+(me\s+)?(a|an|the|some)?\s*([\w#+.-]+\s+){0,2}(functions?|class(es)?|methods?|scripts?|snippets?|algorithms?|code)(\s+(that|to|which|for|in|using|with|called|named|returning|taking)\b|\s*[.?!,:]|\s*$)`,
		`(?i)\b(function|class|method|script)\s+(to|that|which)\s+(calculates?|computes?|sorts?|parses?|converts?|returns?|checks?|reads?|writes?)\b`,
	},
	domain.LanguageKorean: {
		`(함수|클래스|메서드|메소드|코드|스크립트|프로그램|알고리즘)\S*\s*(를|을)?\s*(작성|구현|생성|만들어|짜\s*줘|짜\s*주세요|코딩)`,
		`(작성|구현|코딩)\S*\s*(해\s*줘|해\s*주세요|하는)?\s*\S*\s*(함수|클래스|코드|스크립트)`,
	},
	domain.LanguageJapanese: {
		`(関数|クラス|メソッド|コード|スクリプト|プログラム|アルゴリズム)\S{0,3}(を)?\s*(書いて|作成|実装|作って|生成)`,
		`(実装|作成)\S{0,4}(関数|クラス|コード|スクリプト)`,
	},
}

var categorySources = map[domain.Language]map[domain.Category][]string{
	domain.LanguageEnglish: {
		domain.CategoryVisualElements: {
			`(?i)\b(charts?|graphs?|diagrams?|images?|pictures?|figures?|photos?|screenshots?|illustrations?|icons?|logos?|infographics?|flowcharts?|drawings?)\b`,
		},
		domain.CategoryDataViz: {
			`(?i)\b(bar|line|pie|scatter|area|bubble)\s+(charts?|graphs?|plots?)\b`,
			`(?i)\b(histograms?|heat\s?maps?|plots?|visuali[sz]ations?|visuali[sz]e|trend\s?lines?|x-axis|y-axis|axes|legends?|dashboards?)\b`,
		},
		domain.CategoryVisualActions: {
			`(?i)\b(look(s|ing)?\s+at|show\s+me|shown\s+in|display(ed|s)?\s+(in|on)|illustrated|depicted|describe\s+(this|the)|analy[sz]e\s+(this|the))\b`,
			`(?i)\bwhat\s+does\s+(the|this)\s+\w+\s+look\s+like\b`,
		},
		domain.CategoryTable: {
			`(?i)\b(tables?|spreadsheets?|tabular|rows?|columns?|cells?|matrix)\b`,
		},
		domain.CategoryAppearance: {
			`(?i)\b(colou?rs?|colou?red|red|blue|green|yellow|orange|purple|shapes?|fonts?|styles?|looks?\s+like|appearance|highlighted|bold)\b`,
		},
		domain.CategoryLayout: {
			`(?i)\b(layouts?|top[- ]left|top[- ]right|bottom[- ]left|bottom[- ]right|on\s+the\s+(left|right)|at\s+the\s+(top|bottom)|placement|positioned|arrangement|alignment)\b`,
		},
	},
	domain.LanguageKorean: {
		domain.CategoryVisualElements: {
			`(차트|그래프|도표|다이어그램|이미지|그림|사진|스크린샷|캡처|도식|아이콘|로고|인포그래픽|순서도|흐름도)`,
		},
		domain.CategoryDataViz: {
			`(막대\s*그래프|선\s*그래프|꺾은선|원\s*그래프|파이\s*차트|산점도|히스토그램|히트맵|시각화|추세선|[xXyY]\s*축|범례|대시보드)`,
		},
		domain.CategoryVisualActions: {
			`(보여\s*(줘|주세요|주는|줄래)|보이는|봐\s*(줘|주세요)|살펴\s*봐|나타내는|표시된)`,
		},
		domain.CategoryTable: {
			`(테이블|스프레드시트|엑셀\s*시트)`,
			// Single-syllable nouns must start a word: 목표, 실행, 배열 are not tables.
			`(^|[^가-힣])(표\s*(에서|를|의|로|에|안)|[행열]\s*(과|와|을|를|이|의|에))`,
		},
		domain.CategoryAppearance: {
			`(색상|색깔|빨간|파란|초록|노란|모양|글꼴|폰트|스타일|생김새|외관|굵은)`,
		},
		domain.CategoryLayout: {
			`(레이아웃|배치|왼쪽|오른쪽|상단|하단|좌측|우측|모서리|정렬)`,
		},
	},
	domain.LanguageJapanese: {
		domain.CategoryVisualElements: {
			`(チャート|グラフ|図表|図解|ダイアグラム|画像|写真|イラスト|スクリーンショット|アイコン|ロゴ|フローチャート|この図|図の|図を)`,
		},
		domain.CategoryDataViz: {
			`(棒グラフ|折れ線グラフ|円グラフ|散布図|ヒストグラム|ヒートマップ|可視化|凡例|ダッシュボード|[xXyY]軸)`,
		},
		domain.CategoryVisualActions: {
			`(見せて|見て|表示して|見える|表示され|示して)`,
		},
		domain.CategoryTable: {
			`(テーブル|スプレッドシート|セル|行と列)`,
			`(^|[^\p{Han}])表(の|を|に|で)`,
		},
		domain.CategoryAppearance: {
			`(色|形状|フォント|スタイル|外観|見た目|太字)`,
		},
		domain.CategoryLayout: {
			`(レイアウト|配置|左側|右側|上部|下部|左上|右上|左下|右下)`,
		},
	},
}
