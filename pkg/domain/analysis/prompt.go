package analysis

// PromptVersion identifies the prompt wording. The severity extractor
// depends on the section header and level line below; change both
// together and bump the version.
const PromptVersion = "v1"

// Prompt asks the model for a structured assessment of one pothole photo.
const Prompt = `Você é um engenheiro civil especialista em pavimentação urbana.
Analise a imagem deste buraco na via e responda exatamente no formato abaixo.

DESCRIÇÃO FÍSICA:
- Dimensões aproximadas (largura, comprimento, profundidade estimada)
- Formato e bordas
- Tipo de pavimento e estado do entorno

AVALIAÇÃO DE SEVERIDADE:
- Nível: [LOW/MEDIUM/HIGH/CRITICAL]
- Justificativa: explique em uma ou duas frases

RISCOS:
- Riscos para veículos, motociclistas, ciclistas e pedestres

CONDIÇÕES AGRAVANTES:
- Presença de água, fissuras ao redor, tráfego intenso ou outros fatores

RECOMENDAÇÕES:
- Tipo de reparo indicado e medidas imediatas de sinalização

Escreva o nível entre colchetes usando apenas uma das palavras LOW, MEDIUM, HIGH ou CRITICAL.`
